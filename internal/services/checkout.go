package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/estrella-backend/internal/clients/intake"
	"github.com/yungbote/estrella-backend/internal/data/cartstore"
	"github.com/yungbote/estrella-backend/internal/domain/cart"
	"github.com/yungbote/estrella-backend/internal/domain/notification"
	"github.com/yungbote/estrella-backend/internal/modules/checkout"
	"github.com/yungbote/estrella-backend/internal/observability"
	pkgerrors "github.com/yungbote/estrella-backend/internal/pkg/errors"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

type AddItemInput struct {
	RestaurantID int64             `json:"restaurantId"`
	ItemID       int64             `json:"itemId"`
	Quantity     int               `json:"quantity"`
	Ingredients  []cart.Ingredient `json:"selectedIngredients"`
}

type AddItemResult struct {
	Line         cart.Line                 `json:"line"`
	Cart         checkout.Snapshot         `json:"cart"`
	Notification notification.Notification `json:"notification"`
}

type CheckoutService interface {
	Cart(ctx context.Context) (checkout.Snapshot, error)
	AddItem(ctx context.Context, in AddItemInput) (AddItemResult, error)
	UpdateQuantity(ctx context.Context, key cart.ConfigurationKey, quantity int) (checkout.Snapshot, error)
	RemoveItem(ctx context.Context, key cart.ConfigurationKey) (checkout.Snapshot, error)
	ClearCart(ctx context.Context) (checkout.Snapshot, error)
	Confirm(ctx context.Context, contact string, consent bool) (checkout.Snapshot, error)
	Edit(ctx context.Context) (checkout.Snapshot, error)
	Submit(ctx context.Context) (checkout.Outcome, error)
	// Sweep drops sessions idle longer than the configured TTL. Their carts
	// stay in the cart store; a session whose last save failed is kept until
	// the save goes through.
	Sweep(ctx context.Context, now time.Time) int
}

type sessionEntry struct {
	session  *checkout.Session
	lastSeen time.Time
}

type checkoutService struct {
	log      *logger.Logger
	store    cartstore.Store
	catalog  CatalogService
	orders   intake.OrderIntake
	notifier StorefrontNotifier
	cfg      checkout.Config
	idleTTL  time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionEntry
}

func NewCheckoutService(
	log *logger.Logger,
	store cartstore.Store,
	catalog CatalogService,
	orders intake.OrderIntake,
	notifier StorefrontNotifier,
	cfg checkout.Config,
	idleTTL time.Duration,
) CheckoutService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &checkoutService{
		log:      log.With("service", "CheckoutService"),
		store:    store,
		catalog:  catalog,
		orders:   orders,
		notifier: notifier,
		cfg:      cfg,
		idleTTL:  idleTTL,
		sessions: make(map[uuid.UUID]*sessionEntry),
	}
}

// session returns the live session for the request, loading its cart from
// the store on first use. Loading happens under mu so a session is never
// built twice.
func (s *checkoutService) session(ctx context.Context) (*checkout.Session, error) {
	sid, userID, err := requestSession(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.cfg.Now()
	if e, ok := s.sessions[sid]; ok {
		e.lastSeen = now
		return e.session, nil
	}
	c, err := s.store.Load(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	sess := checkout.NewSession(sid, userID, c, s.store, s.cfg)
	s.sessions[sid] = &sessionEntry{session: sess, lastSeen: now}
	return sess, nil
}

func (s *checkoutService) Sweep(ctx context.Context, now time.Time) int {
	if s.idleTTL <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for sid, e := range s.sessions {
		if now.Sub(e.lastSeen) < s.idleTTL {
			continue
		}
		if e.session.Snapshot().State == checkout.StateSubmitting {
			continue
		}
		if err := e.session.Flush(ctx); err != nil {
			s.log.Warn("Keeping idle session with unsaved cart", "session_id", sid, "error", err)
			continue
		}
		delete(s.sessions, sid)
		n++
	}
	if n > 0 {
		s.log.Debug("Swept idle checkout sessions", "count", n)
	}
	return n
}

func (s *checkoutService) Cart(ctx context.Context) (checkout.Snapshot, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return checkout.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

func cartInputError(err error) error {
	if errors.Is(err, cart.ErrInvalidQuantity) || errors.Is(err, cart.ErrInvalidProduct) || errors.Is(err, cart.ErrUnknownIngredient) {
		return fmt.Errorf("%w: %w", pkgerrors.ErrInvalidArgument, err)
	}
	return err
}

func (s *checkoutService) AddItem(ctx context.Context, in AddItemInput) (AddItemResult, error) {
	if in.Quantity < 1 {
		return AddItemResult{}, cartInputError(cart.ErrInvalidQuantity)
	}
	sess, err := s.session(ctx)
	if err != nil {
		return AddItemResult{}, err
	}
	item, err := s.catalog.GetItem(ctx, in.RestaurantID, in.ItemID)
	if err != nil {
		return AddItemResult{}, err
	}
	product := item.Snapshot()
	if err := cart.CheckSelection(product.BaseIngredients, in.Ingredients); err != nil {
		return AddItemResult{}, cartInputError(err)
	}
	line, n, err := sess.AddItem(ctx, product, in.Quantity, in.Ingredients)
	if err != nil {
		return AddItemResult{}, cartInputError(err)
	}
	snap := sess.Snapshot()
	s.notifier.CartUpdated(ctx, snap)
	s.notifier.Notify(ctx, snap.SessionID, n)
	return AddItemResult{Line: line, Cart: snap, Notification: n}, nil
}

func (s *checkoutService) UpdateQuantity(ctx context.Context, key cart.ConfigurationKey, quantity int) (checkout.Snapshot, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return checkout.Snapshot{}, err
	}
	changed, err := sess.UpdateQuantity(ctx, key, quantity)
	if err != nil {
		return sess.Snapshot(), err
	}
	snap := sess.Snapshot()
	if changed {
		s.notifier.CartUpdated(ctx, snap)
	}
	return snap, nil
}

func (s *checkoutService) RemoveItem(ctx context.Context, key cart.ConfigurationKey) (checkout.Snapshot, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return checkout.Snapshot{}, err
	}
	changed, err := sess.RemoveItem(ctx, key)
	if err != nil {
		return sess.Snapshot(), err
	}
	snap := sess.Snapshot()
	if changed {
		s.notifier.CartUpdated(ctx, snap)
	}
	return snap, nil
}

func (s *checkoutService) ClearCart(ctx context.Context) (checkout.Snapshot, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return checkout.Snapshot{}, err
	}
	if err := sess.ClearCart(ctx); err != nil {
		return sess.Snapshot(), err
	}
	snap := sess.Snapshot()
	s.notifier.CartUpdated(ctx, snap)
	return snap, nil
}

func (s *checkoutService) Confirm(ctx context.Context, contact string, consent bool) (checkout.Snapshot, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return checkout.Snapshot{}, err
	}
	snap, err := sess.Confirm(contact, consent)
	if err == nil {
		s.notifier.CheckoutStateChanged(ctx, snap)
	}
	return snap, err
}

func (s *checkoutService) Edit(ctx context.Context) (checkout.Snapshot, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return checkout.Snapshot{}, err
	}
	snap, err := sess.Edit()
	if err == nil {
		s.notifier.CheckoutStateChanged(ctx, snap)
	}
	return snap, err
}

func (s *checkoutService) submitLockTTL() time.Duration {
	ttl := s.cfg.SubmitTimeout
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return ttl + 15*time.Second
}

func (s *checkoutService) Submit(ctx context.Context) (checkout.Outcome, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return checkout.Outcome{}, err
	}
	metrics := observability.Current()
	if lock := s.cfg.Lock; lock != nil {
		release, ok, err := lock.Acquire(ctx, sess.ID(), s.submitLockTTL())
		if err != nil {
			return checkout.Outcome{Snapshot: sess.Snapshot()}, fmt.Errorf("acquire submit lock: %w", err)
		}
		if !ok {
			metrics.IncOrderRejected("in_flight")
			return checkout.Outcome{Snapshot: sess.Snapshot()}, checkout.ErrSubmissionInFlight
		}
		defer release()
		// Another instance may have submitted or edited this cart.
		stored, err := s.store.Load(ctx, sess.ID())
		if err != nil {
			s.log.Warn("Could not reload cart before submit", "session_id", sess.ID(), "error", err)
		} else {
			sess.Sync(stored)
		}
	}
	ctx, span := observability.StartSpan(ctx, "checkout.submit", attribute.String("session_id", sess.ID().String()))
	start := time.Now()
	out, err := sess.Submit(ctx, s.orders)
	observability.EndSpan(span, err)
	switch {
	case errors.Is(err, checkout.ErrSubmissionInFlight):
		metrics.IncOrderRejected("in_flight")
		return out, err
	case errors.Is(err, checkout.ErrInvalidTransition):
		metrics.IncOrderRejected("invalid_state")
		return out, err
	}
	var verrs checkout.ValidationErrors
	if errors.As(err, &verrs) {
		metrics.IncOrderRejected("validation")
		return out, err
	}
	metrics.ObserveOrderSubmission(time.Since(start), err)

	sid := sess.ID()
	s.notifier.CheckoutStateChanged(ctx, out.Snapshot)
	s.notifier.Notify(ctx, sid, out.Notification)
	if err != nil {
		s.log.Warn("Order submission failed", "session_id", sid, "error", err)
		return out, err
	}
	if out.PersistErr != nil {
		s.log.Error("Order placed but cleared cart was not saved", "session_id", sid, "order_id", out.OrderID, "error", out.PersistErr)
	}
	s.log.Info("Order submitted", "session_id", sid, "order_id", out.OrderID)
	s.notifier.CartUpdated(ctx, out.Snapshot)
	s.notifier.OrderSubmitted(ctx, sid, out.OrderID)
	return out, nil
}
