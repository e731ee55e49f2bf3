package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	catalogrepo "github.com/yungbote/estrella-backend/internal/data/repos/catalog"
	"github.com/yungbote/estrella-backend/internal/data/repos/testutil"
	types "github.com/yungbote/estrella-backend/internal/domain/catalog"
	"github.com/yungbote/estrella-backend/internal/realtime"
)

// gatedRepo holds the first List after it has read the table until release
// is closed. Later calls pass straight through.
type gatedRepo struct {
	catalogrepo.RestaurantRepo
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRepo) List(ctx context.Context, tx *gorm.DB, filter catalogrepo.Filter) ([]*types.Restaurant, error) {
	items, err := g.RestaurantRepo.List(ctx, tx, filter)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return items, err
}

func TestCatalogCacheDropsLoadOvertakenByChange(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	testutil.SeedRestaurant(t, gdb, "Pizzería Roma", "Pizza", "Margherita")

	repo := catalogrepo.NewRestaurantRepo(gdb, log)
	gated := &gatedRepo{RestaurantRepo: repo, entered: make(chan struct{}), release: make(chan struct{})}
	cache := NewCatalogCache(log, gated)
	cat := NewCatalogService(gdb, log, repo, cache, NewStorefrontNotifier(&recordingEmitter{}))
	ctx := context.Background()

	coldRead := make(chan int, 1)
	go func() {
		items, err := cache.List(ctx, catalogrepo.Filter{})
		if err != nil {
			coldRead <- -1
			return
		}
		coldRead <- len(items)
	}()

	select {
	case <-gated.entered:
	case <-time.After(5 * time.Second):
		t.Fatalf("cold read never reached the repo")
	}

	if _, err := cat.Create(ctx, RestaurantDraft{Name: "Burger House", Category: "Hamburguesas"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	cache.HandleMessage(ctx, realtime.SSEMessage{Event: realtime.SSEEventCatalogChanged})
	close(gated.release)

	select {
	case n := <-coldRead:
		if n != 2 {
			t.Fatalf("cold read returned %d restaurants, want 2", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("cold read did not finish")
	}

	items, err := cache.List(ctx, catalogrepo.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("restaurants after CatalogChanged: %d, want 2", len(items))
	}
}
