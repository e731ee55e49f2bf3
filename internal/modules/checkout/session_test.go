package checkout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/estrella-backend/internal/clients/intake"
	"github.com/yungbote/estrella-backend/internal/domain/cart"
	"github.com/yungbote/estrella-backend/internal/domain/notification"
)

type fakeIntake struct {
	calls   atomic.Int32
	err     error
	release chan struct{}
	entered chan struct{}
	last    intake.OrderRequest
	mu      sync.Mutex
}

func (f *fakeIntake) SubmitOrder(ctx context.Context, req intake.OrderRequest) (intake.Confirmation, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return intake.Confirmation{}, f.err
	}
	return intake.Confirmation{Success: true, OrderID: "ord-1"}, nil
}

type memSaver struct {
	mu    sync.Mutex
	saved map[uuid.UUID]int
	err   error
}

func (m *memSaver) Save(ctx context.Context, sid uuid.UUID, c *cart.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.saved == nil {
		m.saved = map[uuid.UUID]int{}
	}
	m.saved[sid] = c.ItemCount()
	return nil
}

var pizza = cart.ProductSnapshot{ID: 101, RestaurantID: 1, Name: "Pizza Margherita", UnitPrice: decimal.RequireFromString("150.00")}

func newSession(t *testing.T) (*Session, *memSaver) {
	t.Helper()
	saver := &memSaver{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession(uuid.New(), nil, cart.New(), saver, Config{
		Fee: cart.DefaultFeePolicy(),
		Now: func() time.Time { return now },
	})
	if _, _, err := s.AddItem(context.Background(), pizza, 1, nil); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	return s, saver
}

func TestConfirmRejectsShortContactWithoutCallingIntake(t *testing.T) {
	s, _ := newSession(t)
	in := &fakeIntake{}

	snap, err := s.Confirm("123", true)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) != 1 || verrs[0].Field != "contactHandle" {
		t.Fatalf("expected contact validation error, got %v", err)
	}
	if snap.State != StateEditing {
		t.Fatalf("state: got %s want editing", snap.State)
	}
	if _, err := s.Submit(context.Background(), in); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("submit from editing: got %v", err)
	}
	if in.calls.Load() != 0 {
		t.Fatalf("intake must not be called")
	}

	if _, err := s.Confirm("5551234567", true); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	out, err := s.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if in.calls.Load() != 1 || in.last.ContactHandle != "5551234567" || len(in.last.Lines) != 1 {
		t.Fatalf("intake not forwarded correctly: calls=%d req=%+v", in.calls.Load(), in.last)
	}
	if out.OrderID != "ord-1" {
		t.Fatalf("order id: %q", out.OrderID)
	}
}

func TestConfirmRequiresConsentAndItems(t *testing.T) {
	s := NewSession(uuid.New(), nil, nil, nil, Config{Fee: cart.DefaultFeePolicy()})
	_, err := s.Confirm("5551234567", false)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	fields := map[string]bool{}
	for _, fe := range verrs {
		fields[fe.Field] = true
	}
	if !fields["cart"] || !fields["consent"] || fields["contactHandle"] {
		t.Fatalf("unexpected fields: %+v", verrs)
	}
}

func TestSubmitSuccessClearsCart(t *testing.T) {
	s, saver := newSession(t)
	if got := s.Snapshot().Totals.Total; got != "175.00" {
		t.Fatalf("total: got %s want 175.00", got)
	}
	if _, err := s.Confirm(" 5551234567 ", true); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	out, err := s.Submit(context.Background(), &fakeIntake{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Notification.Kind != notification.Success || out.Notification.Message != MessageOrderSuccess {
		t.Fatalf("notification: %+v", out.Notification)
	}
	if out.Snapshot.State != StateSubmitted || len(out.Snapshot.Lines) != 0 {
		t.Fatalf("cart should be empty after success: %+v", out.Snapshot)
	}
	if saver.saved[s.ID()] != 0 {
		t.Fatalf("cleared cart not persisted")
	}
	if out.Notification.ExpiresAt.Sub(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) != notification.TTL {
		t.Fatalf("notification ttl: %v", out.Notification.ExpiresAt)
	}
}

func TestFlushRetriesClearedCartAfterFailedSave(t *testing.T) {
	s, saver := newSession(t)
	if _, err := s.Confirm("5551234567", true); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	saver.mu.Lock()
	saver.err = errors.New("store down")
	saver.mu.Unlock()

	out, err := s.Submit(context.Background(), &fakeIntake{})
	if err != nil || out.PersistErr == nil {
		t.Fatalf("want placed order with save error, got err=%v persist=%v", err, out.PersistErr)
	}
	if saver.saved[s.ID()] != 1 {
		t.Fatalf("store should still hold the old cart")
	}
	if err := s.Flush(context.Background()); err == nil {
		t.Fatalf("flush should fail while the store is down")
	}

	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if saver.saved[s.ID()] != 0 {
		t.Fatalf("cleared cart not written on flush")
	}
}

func TestSubmitFailureKeepsCartAndAllowsRetry(t *testing.T) {
	s, _ := newSession(t)
	in := &fakeIntake{err: errors.New("boom")}
	if _, err := s.Confirm("5551234567", true); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	out, err := s.Submit(context.Background(), in)
	if !intake.IsCollaboratorError(err) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
	if out.Notification.Kind != notification.Failure || out.Notification.Message != MessageOrderFailure {
		t.Fatalf("notification: %+v", out.Notification)
	}
	if out.Snapshot.State != StateFailed {
		t.Fatalf("state: %s", out.Snapshot.State)
	}
	lines := out.Snapshot.Lines
	if len(lines) != 1 || lines[0].Product.Name != "Pizza Margherita" || lines[0].Quantity != 1 {
		t.Fatalf("cart must be intact after failure: %+v", lines)
	}

	in.err = nil
	out, err = s.Submit(context.Background(), in)
	if err != nil || out.Snapshot.State != StateSubmitted {
		t.Fatalf("retry: state=%s err=%v", out.Snapshot.State, err)
	}
	if in.calls.Load() != 2 {
		t.Fatalf("expected two intake calls, got %d", in.calls.Load())
	}
}

func TestConcurrentSubmitIsRejected(t *testing.T) {
	s, _ := newSession(t)
	in := &fakeIntake{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	if _, err := s.Confirm("5551234567", true); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), in)
		done <- err
	}()
	<-in.entered

	if _, err := s.Submit(context.Background(), in); !errors.Is(err, ErrSubmissionInFlight) {
		t.Fatalf("second submit: got %v", err)
	}
	if _, _, err := s.AddItem(context.Background(), pizza, 1, nil); !errors.Is(err, ErrSubmissionInFlight) {
		t.Fatalf("cart edit during submission: got %v", err)
	}
	if snap := s.Snapshot(); snap.State != StateSubmitting {
		t.Fatalf("state during submission: %s", snap.State)
	}

	close(in.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if in.calls.Load() != 1 {
		t.Fatalf("intake called %d times", in.calls.Load())
	}
}

func TestSubmitSurvivesCallerCancel(t *testing.T) {
	s, _ := newSession(t)
	in := &fakeIntake{}
	if _, err := s.Confirm("5551234567", true); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Submit(ctx, in); err != nil {
		t.Fatalf("Submit with cancelled caller: %v", err)
	}
}

func TestCartEditReopensEditing(t *testing.T) {
	s, _ := newSession(t)
	if _, err := s.Confirm("5551234567", true); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	key := s.Snapshot().Lines[0].Key
	if _, err := s.UpdateQuantity(context.Background(), key, 3); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	snap := s.Snapshot()
	if snap.State != StateEditing || snap.Totals.Total != "475.00" {
		t.Fatalf("unexpected snapshot: state=%s total=%s", snap.State, snap.Totals.Total)
	}

	found, err := s.UpdateQuantity(context.Background(), "999-", 1)
	if err != nil || found {
		t.Fatalf("absent key should be a no-op: found=%v err=%v", found, err)
	}
}

func TestEditTransitions(t *testing.T) {
	s, _ := newSession(t)
	if _, err := s.Confirm("5551234567", true); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	snap, err := s.Edit()
	if err != nil || snap.State != StateEditing {
		t.Fatalf("Edit: state=%s err=%v", snap.State, err)
	}
	if snap.ContactHandle != "5551234567" || !snap.ConsentGiven {
		t.Fatalf("edit should keep the contact form: %+v", snap)
	}
}

func TestValidateContact(t *testing.T) {
	cases := []struct {
		name    string
		contact string
		consent bool
		want    int
	}{
		{"valid", "5551234567", true, 0},
		{"short", "123", true, 1},
		{"padded short", "   12345   ", true, 1},
		{"no consent", "5551234567", false, 1},
		{"both", "", false, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidateContact(tc.contact, tc.consent, 10); len(got) != tc.want {
				t.Fatalf("got %d errors want %d: %v", len(got), tc.want, got)
			}
		})
	}
}
