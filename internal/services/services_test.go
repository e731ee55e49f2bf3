package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/estrella-backend/internal/clients/intake"
	"github.com/yungbote/estrella-backend/internal/data/cartstore"
	catalogrepo "github.com/yungbote/estrella-backend/internal/data/repos/catalog"
	"github.com/yungbote/estrella-backend/internal/data/repos/testutil"
	"github.com/yungbote/estrella-backend/internal/domain/cart"
	"github.com/yungbote/estrella-backend/internal/modules/checkout"
	"github.com/yungbote/estrella-backend/internal/modules/servicerequest"
	"github.com/yungbote/estrella-backend/internal/modules/support"
	"github.com/yungbote/estrella-backend/internal/platform/apierr"
	"github.com/yungbote/estrella-backend/internal/platform/ctxutil"
	"github.com/yungbote/estrella-backend/internal/realtime"
)

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (e *recordingEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *recordingEmitter) events() []realtime.SSEEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]realtime.SSEEvent, 0, len(e.msgs))
	for _, m := range e.msgs {
		out = append(out, m.Event)
	}
	return out
}

func hasEvent(events []realtime.SSEEvent, want realtime.SSEEvent) bool {
	for _, e := range events {
		if e == want {
			return true
		}
	}
	return false
}

type fakeOrderIntake struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeOrderIntake) SubmitOrder(ctx context.Context, req intake.OrderRequest) (intake.Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return intake.Confirmation{}, f.err
	}
	return intake.Confirmation{Success: true, OrderID: "ord-1"}, nil
}

type fakeServiceIntake struct{ err error }

func (f fakeServiceIntake) SubmitServiceRequest(ctx context.Context, req intake.ServiceRequest) (intake.Confirmation, error) {
	if f.err != nil {
		return intake.Confirmation{}, f.err
	}
	return intake.Confirmation{Success: true, OrderID: "srv-1"}, nil
}

func sessionCtx(role ctxutil.Role) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{
		UserID:    uuid.New(),
		SessionID: uuid.New(),
		Role:      role,
	})
}

type fixture struct {
	catalog  CatalogService
	checkout CheckoutService
	emitter  *recordingEmitter
	orders   *fakeOrderIntake
	itemID   int64
	restID   int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	r := testutil.SeedRestaurant(t, gdb, "Pizzería Roma", "Pizza", "Margherita", "Pepperoni")
	testutil.SeedRestaurant(t, gdb, "Burger House", "Hamburguesas", "Clásica")

	emitter := &recordingEmitter{}
	notifier := NewStorefrontNotifier(emitter)
	repo := catalogrepo.NewRestaurantRepo(gdb, log)
	cache := NewCatalogCache(log, repo)
	cat := NewCatalogService(gdb, log, repo, cache, notifier)
	orders := &fakeOrderIntake{}
	co := NewCheckoutService(log, cartstore.NewMemoryStore(log, time.Hour), cat, orders, notifier, checkout.Config{Fee: cart.DefaultFeePolicy()}, time.Hour)
	return fixture{catalog: cat, checkout: co, emitter: emitter, orders: orders, itemID: r.Menu[0].ID, restID: r.ID}
}

func TestCatalogListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		filter catalogrepo.Filter
		want   int
	}{
		{"all", catalogrepo.Filter{Category: "All"}, 2},
		{"category", catalogrepo.Filter{Category: "pizza"}, 1},
		{"menu item query", catalogrepo.Filter{Query: "clásica"}, 1},
		{"no match", catalogrepo.Filter{Query: "sushi"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.catalog.List(ctx, tc.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("got %d restaurants, want %d", len(got), tc.want)
			}
		})
	}
}

func TestCatalogWritesPublishAndReload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.catalog.List(ctx, catalogrepo.Filter{}); err != nil {
		t.Fatalf("warm: %v", err)
	}

	res, err := f.catalog.Create(ctx, RestaurantDraft{Name: "Tacos Don Pepe", Category: "Mexicana", Rating: 4.5})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Notification.Message != MessageRestaurantCreated {
		t.Fatalf("unexpected toast %q", res.Notification.Message)
	}
	if !hasEvent(f.emitter.events(), realtime.SSEEventCatalogChanged) {
		t.Fatalf("create should publish CatalogChanged")
	}
	all, _ := f.catalog.List(ctx, catalogrepo.Filter{})
	if len(all) != 3 {
		t.Fatalf("cache should reload after a write, got %d", len(all))
	}

	name := "Tacos El Güero"
	if _, err := f.catalog.Update(ctx, res.Restaurant.ID, RestaurantPatch{Name: &name}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := f.catalog.Get(ctx, res.Restaurant.ID)
	if err != nil || got.Name != name {
		t.Fatalf("Get after update: %v %+v", err, got)
	}

	del, err := f.catalog.Delete(ctx, res.Restaurant.ID)
	if err != nil || del.Notification.Message != MessageRestaurantDeleted {
		t.Fatalf("Delete: %v %+v", err, del)
	}
	if _, err := f.catalog.Get(ctx, res.Restaurant.ID); apierr.From(err).Status != 404 {
		t.Fatalf("deleted restaurant should be not found, got %v", err)
	}
}

func TestCatalogCreateValidation(t *testing.T) {
	f := newFixture(t)
	res, err := f.catalog.Create(context.Background(), RestaurantDraft{Name: " ", Category: "Pizza"})
	if err == nil || apierr.From(err).Status != 400 {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if res.Notification.Message != MessageRestaurantSaveErr {
		t.Fatalf("expected failure toast, got %q", res.Notification.Message)
	}
	if hasEvent(f.emitter.events(), realtime.SSEEventCatalogChanged) {
		t.Fatalf("failed write must not publish")
	}
}

func TestCheckoutAddSnapshotsCatalogPrice(t *testing.T) {
	f := newFixture(t)
	ctx := sessionCtx(ctxutil.RoleGuest)

	res, err := f.checkout.AddItem(ctx, AddItemInput{RestaurantID: f.restID, ItemID: f.itemID, Quantity: 2})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if res.Cart.Totals.Subtotal != "200.00" || res.Cart.Totals.Total != "225.00" {
		t.Fatalf("unexpected totals %+v", res.Cart.Totals)
	}
	if res.Notification.Message != checkout.MessageAddedToCart {
		t.Fatalf("unexpected toast %q", res.Notification.Message)
	}
	if !hasEvent(f.emitter.events(), realtime.SSEEventCartUpdated) {
		t.Fatalf("add should publish CartUpdated")
	}

	if _, err := f.checkout.AddItem(ctx, AddItemInput{RestaurantID: f.restID, ItemID: f.itemID, Quantity: 0}); apierr.From(err).Status != 400 {
		t.Fatalf("quantity 0 should be a bad request, got %v", err)
	}
	if _, err := f.checkout.AddItem(ctx, AddItemInput{RestaurantID: f.restID, ItemID: 9999, Quantity: 1}); apierr.From(err).Status != 404 {
		t.Fatalf("unknown item should be not found, got %v", err)
	}
}

func TestCheckoutAddRejectsForeignIngredients(t *testing.T) {
	f := newFixture(t)
	ctx := sessionCtx(ctxutil.RoleGuest)

	in := AddItemInput{RestaurantID: f.restID, ItemID: f.itemID, Quantity: 1, Ingredients: []cart.Ingredient{{Name: "Caviar"}, {Name: "Oro"}}}
	if _, err := f.checkout.AddItem(ctx, in); apierr.From(err).Status != 400 {
		t.Fatalf("foreign ingredients should be a bad request, got %v", err)
	}
	in.Ingredients = []cart.Ingredient{{Name: "Queso-Tomate"}}
	if _, err := f.checkout.AddItem(ctx, in); apierr.From(err).Status != 400 {
		t.Fatalf("joined names should be rejected, got %v", err)
	}
	snap, _ := f.checkout.Cart(ctx)
	if len(snap.Lines) != 0 {
		t.Fatalf("rejected adds must not touch the cart, got %+v", snap.Lines)
	}

	in.Ingredients = []cart.Ingredient{{Name: "Tomate"}}
	res, err := f.checkout.AddItem(ctx, in)
	if err != nil {
		t.Fatalf("AddItem with base ingredient: %v", err)
	}
	if want := cart.Key(f.itemID, in.Ingredients); res.Line.Key != want {
		t.Fatalf("key=%q want %q", res.Line.Key, want)
	}
}

func TestCheckoutSubmitFlow(t *testing.T) {
	f := newFixture(t)
	ctx := sessionCtx(ctxutil.RoleUser)

	if _, err := f.checkout.AddItem(ctx, AddItemInput{RestaurantID: f.restID, ItemID: f.itemID, Quantity: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := f.checkout.Submit(ctx); !errors.Is(err, checkout.ErrInvalidTransition) {
		t.Fatalf("submit before confirm should fail, got %v", err)
	}
	if _, err := f.checkout.Confirm(ctx, "9631234567", true); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	f.orders.err = errors.New("intake down")
	out, err := f.checkout.Submit(ctx)
	if !intake.IsCollaboratorError(err) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
	if out.Snapshot.State != checkout.StateFailed || len(out.Snapshot.Lines) != 1 {
		t.Fatalf("failed submit must keep the cart, got %+v", out.Snapshot)
	}

	f.orders.err = nil
	out, err = f.checkout.Submit(ctx)
	if err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if out.OrderID != "ord-1" || out.Snapshot.State != checkout.StateSubmitted || len(out.Snapshot.Lines) != 0 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if f.orders.calls != 2 {
		t.Fatalf("intake called %d times, want 2", f.orders.calls)
	}
	if !hasEvent(f.emitter.events(), realtime.SSEEventOrderSubmitted) {
		t.Fatalf("success should publish OrderSubmitted")
	}
}

func TestCheckoutSessionsAreIsolated(t *testing.T) {
	f := newFixture(t)
	a, b := sessionCtx(ctxutil.RoleGuest), sessionCtx(ctxutil.RoleGuest)
	if _, err := f.checkout.AddItem(a, AddItemInput{RestaurantID: f.restID, ItemID: f.itemID, Quantity: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	snap, err := f.checkout.Cart(b)
	if err != nil {
		t.Fatalf("Cart: %v", err)
	}
	if len(snap.Lines) != 0 {
		t.Fatalf("session b sees session a's cart")
	}
	if _, err := f.checkout.Cart(context.Background()); apierr.From(err).Status != 401 {
		t.Fatalf("missing session should be unauthorized, got %v", err)
	}
}

func TestCheckoutSweepKeepsStoredCart(t *testing.T) {
	f := newFixture(t)
	ctx := sessionCtx(ctxutil.RoleGuest)
	if _, err := f.checkout.AddItem(ctx, AddItemInput{RestaurantID: f.restID, ItemID: f.itemID, Quantity: 3}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if n := f.checkout.Sweep(context.Background(), time.Now().Add(2*time.Hour)); n != 1 {
		t.Fatalf("swept %d sessions, want 1", n)
	}
	snap, err := f.checkout.Cart(ctx)
	if err != nil {
		t.Fatalf("Cart: %v", err)
	}
	if len(snap.Lines) != 1 || snap.Lines[0].Quantity != 3 {
		t.Fatalf("cart should reload from the store, got %+v", snap.Lines)
	}
}

type flakyCartStore struct {
	cartstore.Store
	mu   sync.Mutex
	fail bool
}

func (f *flakyCartStore) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *flakyCartStore) Save(ctx context.Context, sid uuid.UUID, c *cart.Cart) error {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return errors.New("cart store unavailable")
	}
	return f.Store.Save(ctx, sid, c)
}

func TestCheckoutSweepKeepsSessionUntilClearedCartIsSaved(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	r := testutil.SeedRestaurant(t, gdb, "Pizzería Roma", "Pizza", "Margherita")
	repo := catalogrepo.NewRestaurantRepo(gdb, log)
	notifier := NewStorefrontNotifier(&recordingEmitter{})
	cat := NewCatalogService(gdb, log, repo, NewCatalogCache(log, repo), notifier)
	store := &flakyCartStore{Store: cartstore.NewMemoryStore(log, time.Hour)}
	co := NewCheckoutService(log, store, cat, &fakeOrderIntake{}, notifier, checkout.Config{Fee: cart.DefaultFeePolicy()}, time.Hour)

	ctx := sessionCtx(ctxutil.RoleGuest)
	sid := ctxutil.GetRequestData(ctx).SessionID
	if _, err := co.AddItem(ctx, AddItemInput{RestaurantID: r.ID, ItemID: r.Menu[0].ID, Quantity: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := co.Confirm(ctx, "9631234567", true); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	store.setFail(true)
	out, err := co.Submit(ctx)
	if err != nil || out.PersistErr == nil {
		t.Fatalf("expected placed order with a save error, got err=%v persist=%v", err, out.PersistErr)
	}

	later := time.Now().Add(2 * time.Hour)
	if n := co.Sweep(context.Background(), later); n != 0 {
		t.Fatalf("session with unsaved cart was swept")
	}
	snap, err := co.Cart(ctx)
	if err != nil || len(snap.Lines) != 0 {
		t.Fatalf("submitted cart came back: %v %+v", err, snap.Lines)
	}

	store.setFail(false)
	if n := co.Sweep(context.Background(), later.Add(2*time.Hour)); n != 1 {
		t.Fatalf("swept %d sessions after the store recovered, want 1", n)
	}
	stored, err := store.Load(context.Background(), sid)
	if err != nil || !stored.IsEmpty() {
		t.Fatalf("store should hold the cleared cart, got %v items=%d", err, stored.ItemCount())
	}
	snap, _ = co.Cart(ctx)
	if len(snap.Lines) != 0 {
		t.Fatalf("reloaded session should have an empty cart, got %+v", snap.Lines)
	}
}

type memSubmitLock struct {
	mu   sync.Mutex
	held map[uuid.UUID]bool
}

func (l *memSubmitLock) Acquire(ctx context.Context, sid uuid.UUID, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[uuid.UUID]bool{}
	}
	if l.held[sid] {
		return nil, false, nil
	}
	l.held[sid] = true
	return func() {
		l.mu.Lock()
		delete(l.held, sid)
		l.mu.Unlock()
	}, true, nil
}

func TestCheckoutSubmitAcrossInstancesPlacesOneOrder(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	r := testutil.SeedRestaurant(t, gdb, "Pizzería Roma", "Pizza", "Margherita")
	repo := catalogrepo.NewRestaurantRepo(gdb, log)
	notifier := NewStorefrontNotifier(&recordingEmitter{})
	cat := NewCatalogService(gdb, log, repo, NewCatalogCache(log, repo), notifier)

	shared := cartstore.NewMemoryStore(log, time.Hour)
	lock := &memSubmitLock{}
	orders := &fakeOrderIntake{}
	cfg := checkout.Config{Fee: cart.DefaultFeePolicy(), Lock: lock}
	a := NewCheckoutService(log, shared, cat, orders, notifier, cfg, time.Hour)
	b := NewCheckoutService(log, shared, cat, orders, notifier, cfg, time.Hour)

	ctx := sessionCtx(ctxutil.RoleGuest)
	sid := ctxutil.GetRequestData(ctx).SessionID
	if _, err := a.AddItem(ctx, AddItemInput{RestaurantID: r.ID, ItemID: r.Menu[0].ID, Quantity: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	for _, svc := range []CheckoutService{a, b} {
		if _, err := svc.Confirm(ctx, "9631234567", true); err != nil {
			t.Fatalf("Confirm: %v", err)
		}
	}

	release, _, _ := lock.Acquire(ctx, sid, time.Minute)
	if _, err := b.Submit(ctx); !errors.Is(err, checkout.ErrSubmissionInFlight) {
		t.Fatalf("held lock should reject submit, got %v", err)
	}
	release()

	if _, err := a.Submit(ctx); err != nil {
		t.Fatalf("Submit on a: %v", err)
	}
	var verrs checkout.ValidationErrors
	if _, err := b.Submit(ctx); !errors.As(err, &verrs) {
		t.Fatalf("b should see the cart emptied by a, got %v", err)
	}
	if orders.calls != 1 {
		t.Fatalf("intake called %d times, want 1", orders.calls)
	}
}

func TestServiceRequestSubmitNotifies(t *testing.T) {
	emitter := &recordingEmitter{}
	svc := NewServiceRequestService(testutil.Logger(t), fakeServiceIntake{}, NewStorefrontNotifier(emitter), servicerequest.Config{})
	ctx := sessionCtx(ctxutil.RoleGuest)

	if _, err := svc.Confirm(ctx, servicerequest.Form{Tariff: "plaza", Origin: "Centro", Destination: "Plaza Sol", Description: "Llaves"}); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	out, err := svc.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.RequestID != "srv-1" || out.View.Step != servicerequest.StepSubmitted {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !hasEvent(emitter.events(), realtime.SSEEventNotification) {
		t.Fatalf("submit should push a notification")
	}
	if slots := svc.Slots(); len(slots.Days) != 7 || len(slots.Times) != 28 {
		t.Fatalf("unexpected slots %d days %d times", len(slots.Days), len(slots.Times))
	}
}

type failingAsker struct{}

func (failingAsker) Ask(ctx context.Context, history []support.Message, message string) (support.Reply, error) {
	return support.Reply{}, &intake.CollaboratorError{Op: "support assistant", Err: errors.New("timeout")}
}

func TestSupportFailureReturnsApology(t *testing.T) {
	emitter := &recordingEmitter{}
	svc := NewSupportService(testutil.Logger(t), failingAsker{}, NewStorefrontNotifier(emitter), "")
	ans, err := svc.Ask(sessionCtx(ctxutil.RoleGuest), nil, "¿Dónde está mi pedido?")
	if !intake.IsCollaboratorError(err) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
	if ans.Reply.Text != support.FailureReply || ans.Notification == nil {
		t.Fatalf("expected apology with notification, got %+v", ans)
	}
	if got := svc.Contact().WhatsApp; got != "https://wa.me/529631539156?text=Hola%2C%20necesito%20ayuda%20con%20mi%20servicio." {
		t.Fatalf("unexpected link %q", got)
	}
}

func TestSupportWithoutAssistant(t *testing.T) {
	svc := NewSupportService(testutil.Logger(t), nil, NewStorefrontNotifier(nil), "")
	ans, err := svc.Ask(sessionCtx(ctxutil.RoleGuest), nil, "hola")
	if err == nil || ans.Reply.Text != support.FailureReply {
		t.Fatalf("expected apology, got %+v %v", ans, err)
	}
}
