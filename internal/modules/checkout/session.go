package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/estrella-backend/internal/clients/intake"
	"github.com/yungbote/estrella-backend/internal/domain/cart"
	"github.com/yungbote/estrella-backend/internal/domain/notification"
)

// CartSaver persists the cart after every mutation. cartstore.Store
// satisfies it.
type CartSaver interface {
	Save(ctx context.Context, sessionID uuid.UUID, c *cart.Cart) error
}

// SubmitLock serializes submissions for one session across instances that
// share a cart store. ok is false when another holder has the lock.
type SubmitLock interface {
	Acquire(ctx context.Context, sessionID uuid.UUID, ttl time.Duration) (release func(), ok bool, err error)
}

type Config struct {
	Fee              cart.FeePolicy
	MinContactLength int
	// SubmitTimeout bounds the intake call. The call is detached from the
	// caller's context so a dropped request cannot abort a submission.
	SubmitTimeout time.Duration
	Now           func() time.Time
	// Lock is nil when sessions live on a single instance.
	Lock SubmitLock
}

func (c Config) withDefaults() Config {
	if c.MinContactLength <= 0 {
		c.MinContactLength = DefaultMinContactLength
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 30 * time.Second
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Session is the application state of one storefront session: its cart and
// where it stands in checkout. All mutations go through its methods, which
// serialize on mu. The intake call runs outside the lock with inFlight set.
type Session struct {
	id     uuid.UUID
	userID *uuid.UUID
	cfg    Config
	saver  CartSaver

	mu          sync.Mutex
	cart        *cart.Cart
	state       State
	contact     string
	consent     bool
	inFlight    bool
	lastOrderID string
	lastNotice  *notification.Notification
	// unsaved is set while the store holds an older cart than this session.
	unsaved bool
}

func NewSession(id uuid.UUID, userID *uuid.UUID, c *cart.Cart, saver CartSaver, cfg Config) *Session {
	if c == nil {
		c = cart.New()
	}
	return &Session{
		id:     id,
		userID: userID,
		cfg:    cfg.withDefaults(),
		saver:  saver,
		cart:   c,
		state:  StateEditing,
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

type Snapshot struct {
	SessionID     uuid.UUID                  `json:"sessionId"`
	State         State                      `json:"state"`
	Lines         []cart.Line                `json:"lines"`
	Totals        cart.DisplayTotals         `json:"totals"`
	ContactHandle string                     `json:"contactHandle,omitempty"`
	ConsentGiven  bool                       `json:"consentGiven"`
	LastOrderID   string                     `json:"lastOrderId,omitempty"`
	Notification  *notification.Notification `json:"notification,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	lines := s.cart.Lines()
	if lines == nil {
		lines = []cart.Line{}
	}
	snap := Snapshot{
		SessionID:     s.id,
		State:         s.state,
		Lines:         lines,
		Totals:        s.cart.Totals(s.cfg.Fee).Display(),
		ContactHandle: s.contact,
		ConsentGiven:  s.consent,
		LastOrderID:   s.lastOrderID,
	}
	if s.lastNotice != nil && s.lastNotice.Active(s.cfg.Now()) {
		n := *s.lastNotice
		snap.Notification = &n
	}
	return snap
}

func (s *Session) persistLocked(ctx context.Context) error {
	if s.saver == nil {
		return nil
	}
	if err := s.saver.Save(ctx, s.id, s.cart); err != nil {
		s.unsaved = true
		return fmt.Errorf("save cart: %w", err)
	}
	s.unsaved = false
	return nil
}

// Sync replaces the cart with the stored copy, which another instance may
// have changed. Skipped while a submission is pending or a save is owed.
func (s *Session) Sync(c *cart.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == nil || s.inFlight || s.unsaved {
		return
	}
	s.cart = c
}

// Flush retries the last failed save. Nothing is written when the store is
// already current.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.unsaved {
		return nil
	}
	return s.persistLocked(ctx)
}

// mutate runs fn against the cart unless a submission is pending. A change
// made after confirming, a failure or a completed order reopens editing.
func (s *Session) mutate(ctx context.Context, fn func(c *cart.Cart) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrSubmissionInFlight
	}
	changed, err := fn(s.cart)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if s.state.reopens() {
		s.state = StateEditing
	}
	return s.persistLocked(ctx)
}

func (s *Session) AddItem(ctx context.Context, product cart.ProductSnapshot, quantity int, ingredients []cart.Ingredient) (cart.Line, notification.Notification, error) {
	var line cart.Line
	err := s.mutate(ctx, func(c *cart.Cart) (bool, error) {
		l, err := c.Add(product, quantity, ingredients)
		if err != nil {
			return false, err
		}
		line = l
		return true, nil
	})
	if err != nil {
		return cart.Line{}, notification.Notification{}, err
	}
	n := notification.New(notification.Success, MessageAddedToCart, s.cfg.Now())
	s.setNotice(n)
	return line, n, nil
}

// UpdateQuantity reports whether the key was present.
func (s *Session) UpdateQuantity(ctx context.Context, key cart.ConfigurationKey, n int) (bool, error) {
	var found bool
	err := s.mutate(ctx, func(c *cart.Cart) (bool, error) {
		found = c.UpdateQuantity(key, n)
		return found, nil
	})
	return found, err
}

func (s *Session) RemoveItem(ctx context.Context, key cart.ConfigurationKey) (bool, error) {
	var found bool
	err := s.mutate(ctx, func(c *cart.Cart) (bool, error) {
		found = c.Remove(key)
		return found, nil
	})
	return found, err
}

func (s *Session) ClearCart(ctx context.Context) error {
	return s.mutate(ctx, func(c *cart.Cart) (bool, error) {
		if c.IsEmpty() {
			return false, nil
		}
		c.Clear()
		return true, nil
	})
}

// Confirm moves editing to confirming. On a validation failure the session
// stays in editing and nothing is sent anywhere.
func (s *Session) Confirm(contact string, consent bool) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return s.snapshotLocked(), ErrSubmissionInFlight
	}
	if !s.state.canConfirm() {
		return s.snapshotLocked(), ErrInvalidTransition
	}
	s.contact = strings.TrimSpace(contact)
	s.consent = consent

	verrs := ValidateContact(contact, consent, s.cfg.MinContactLength)
	if s.cart.IsEmpty() {
		verrs = append(ValidationErrors{{Field: "cart", Message: MessageCartEmpty}}, verrs...)
	}
	if len(verrs) > 0 {
		s.state = StateEditing
		return s.snapshotLocked(), verrs
	}
	s.state = StateConfirming
	return s.snapshotLocked(), nil
}

// Edit returns from the confirmation screen to editing.
func (s *Session) Edit() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return s.snapshotLocked(), ErrSubmissionInFlight
	}
	switch s.state {
	case StateConfirming, StateFailed, StateSubmitted:
		s.state = StateEditing
	case StateEditing:
	default:
		return s.snapshotLocked(), ErrInvalidTransition
	}
	return s.snapshotLocked(), nil
}

type Outcome struct {
	Snapshot     Snapshot
	Notification notification.Notification
	OrderID      string
	// PersistErr is set when the order went through but the cleared cart
	// could not be saved.
	PersistErr error
}

// Submit forwards the confirmed cart to the order intake exactly once. A
// second call while the first is pending gets ErrSubmissionInFlight. On
// success the cart is cleared; on failure it is left untouched and the
// session moves to failed so the customer can retry.
func (s *Session) Submit(ctx context.Context, orders intake.OrderIntake) (Outcome, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return Outcome{}, ErrSubmissionInFlight
	}
	if !s.state.canSubmit() {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return Outcome{Snapshot: snap}, ErrInvalidTransition
	}
	// Confirming already checked these; a failed session re-checks because
	// nothing else guards the retry path.
	if verrs := ValidateContact(s.contact, s.consent, s.cfg.MinContactLength); len(verrs) > 0 || s.cart.IsEmpty() {
		s.state = StateEditing
		snap := s.snapshotLocked()
		s.mu.Unlock()
		if len(verrs) == 0 {
			verrs = ValidationErrors{{Field: "cart", Message: MessageCartEmpty}}
		}
		return Outcome{Snapshot: snap}, verrs
	}
	req := s.orderRequestLocked()
	s.inFlight = true
	s.state = StateSubmitting
	s.mu.Unlock()

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SubmitTimeout)
	conf, err := orders.SubmitOrder(callCtx, req)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	now := s.cfg.Now()

	if err != nil {
		s.state = StateFailed
		n := notification.New(notification.Failure, MessageOrderFailure, now)
		s.lastNotice = &n
		if !intake.IsCollaboratorError(err) {
			err = &intake.CollaboratorError{Op: "submit order", Err: err}
		}
		return Outcome{Snapshot: s.snapshotLocked(), Notification: n}, err
	}

	s.cart.Clear()
	s.consent = false
	s.state = StateSubmitted
	s.lastOrderID = conf.OrderID
	n := notification.New(notification.Success, MessageOrderSuccess, now)
	s.lastNotice = &n
	// The order exists at this point; a failed save is reported, not fatal.
	persistErr := s.persistLocked(context.WithoutCancel(ctx))
	return Outcome{Snapshot: s.snapshotLocked(), Notification: n, OrderID: conf.OrderID, PersistErr: persistErr}, nil
}

func (s *Session) orderRequestLocked() intake.OrderRequest {
	totals := s.cart.Totals(s.cfg.Fee)
	return intake.OrderRequest{
		SessionID:     s.id,
		UserID:        s.userID,
		Lines:         s.cart.Lines(),
		ContactHandle: s.contact,
		ConsentGiven:  s.consent,
		Subtotal:      totals.Subtotal,
		DeliveryFee:   totals.DeliveryFee,
		Total:         totals.Total,
	}
}

func (s *Session) setNotice(n notification.Notification) {
	s.mu.Lock()
	s.lastNotice = &n
	s.mu.Unlock()
}
