package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/estrella-backend/internal/data/repos/testutil"
	types "github.com/yungbote/estrella-backend/internal/domain/catalog"
	pkgerrors "github.com/yungbote/estrella-backend/internal/pkg/errors"
)

func TestRestaurantRepoListFilters(t *testing.T) {
	db := testutil.DB(t)
	repo := NewRestaurantRepo(db, testutil.Logger(t))
	ctx := context.Background()

	testutil.SeedRestaurant(t, db, "Rose Garden Restaurant", "Burger - Chiken - Riche - Wings", "Pizza Margherita", "Chicken Thai Biriyani")
	testutil.SeedRestaurant(t, db, "Burger Joint", "Burger - Americana", "Classic Cheeseburger", "Papas Fritas")
	testutil.SeedRestaurant(t, db, "Sushi Zen", "Japonesa", "Nigiri")

	cases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{Category: "All"}, []string{"Rose Garden Restaurant", "Burger Joint", "Sushi Zen"}},
		{"category substring", Filter{Category: "burger"}, []string{"Rose Garden Restaurant", "Burger Joint"}},
		{"search by item", Filter{Query: "papas"}, []string{"Burger Joint"}},
		{"search by name", Filter{Query: "ZEN"}, []string{"Sushi Zen"}},
		{"category and search", Filter{Category: "Burger", Query: "pizza"}, []string{"Rose Garden Restaurant"}},
		{"no match", Filter{Query: "tacos"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.List(ctx, nil, tc.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("want %v, got %d restaurants", tc.want, len(got))
			}
			for i := range got {
				if got[i].Name != tc.want[i] {
					t.Fatalf("position %d: want %q got %q", i, tc.want[i], got[i].Name)
				}
			}
		})
	}

	all, _ := repo.List(ctx, nil, Filter{})
	if len(all[0].Menu) != 2 || all[0].Menu[0].Name != "Pizza Margherita" {
		t.Fatalf("menu should be preloaded in id order: %+v", all[0].Menu)
	}
}

func TestRestaurantRepoCRUD(t *testing.T) {
	db := testutil.DB(t)
	repo := NewRestaurantRepo(db, testutil.Logger(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, nil, &types.Restaurant{Name: "Tacos El Güero", Category: "Mexicana", DeliveryFee: "$15", DeliveryTime: "30 min"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected generated id")
	}

	updated, err := repo.Update(ctx, nil, created.ID, map[string]any{"delivery_time": "15 min", "id": 999})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.DeliveryTime != "15 min" || updated.ID != created.ID {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if _, err := repo.Update(ctx, nil, 424242, map[string]any{"name": "x"}); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("update missing: want ErrNotFound, got %v", err)
	}

	if err := repo.Delete(ctx, nil, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, nil, created.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("get deleted: want ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, nil, created.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("double delete: want ErrNotFound, got %v", err)
	}
}

func TestRestaurantRepoGetItem(t *testing.T) {
	db := testutil.DB(t)
	repo := NewRestaurantRepo(db, testutil.Logger(t))
	r := testutil.SeedRestaurant(t, db, "Burger Joint", "Burger", "Bacon Burger")

	item, err := repo.GetItem(context.Background(), nil, r.ID, r.Menu[0].ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	snap := item.Snapshot()
	if snap.Name != "Bacon Burger" || snap.RestaurantID != r.ID || len(snap.BaseIngredients) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if _, err := repo.GetItem(context.Background(), nil, r.ID+1, r.Menu[0].ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("item under wrong restaurant: want ErrNotFound, got %v", err)
	}
}

func TestFilterMatchAgreesWithList(t *testing.T) {
	db := testutil.DB(t)
	repo := NewRestaurantRepo(db, testutil.Logger(t))
	ctx := context.Background()

	testutil.SeedRestaurant(t, db, "Rose Garden Restaurant", "Burger - Chiken - Riche - Wings", "Pizza Margherita")
	testutil.SeedRestaurant(t, db, "Burger Joint", "Burger - Americana", "Papas Fritas")
	testutil.SeedRestaurant(t, db, "Sushi Zen", "Japonesa", "Nigiri")

	all, err := repo.List(ctx, nil, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, f := range []Filter{{}, {Category: "todos"}, {Category: "BURGER"}, {Query: "pizza"}, {Category: "japonesa", Query: "papas"}} {
		fromDB, err := repo.List(ctx, nil, f)
		if err != nil {
			t.Fatalf("List(%+v): %v", f, err)
		}
		var inMemory []int64
		for _, r := range all {
			if f.Match(r) {
				inMemory = append(inMemory, r.ID)
			}
		}
		if len(inMemory) != len(fromDB) {
			t.Fatalf("filter %+v: memory=%v db=%d rows", f, inMemory, len(fromDB))
		}
		for i := range fromDB {
			if fromDB[i].ID != inMemory[i] {
				t.Fatalf("filter %+v: order mismatch", f)
			}
		}
	}
}
