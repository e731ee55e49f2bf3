package servicerequest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/estrella-backend/internal/clients/intake"
	"github.com/yungbote/estrella-backend/internal/domain/notification"
)

type Step string

const (
	StepDetails      Step = "details"
	StepConfirmation Step = "confirmation"
	StepSubmitted    Step = "submitted"
)

const (
	MessageMissingDetails  = "Por favor, completa los detalles de origen, destino y descripción."
	MessageMissingSchedule = "Por favor, selecciona un día y una hora."
	MessageUnknownTariff   = "Por favor, selecciona una tarifa para tu servicio."
	MessageSubmitSuccess   = "¡Gracias por tu solicitud!"
	MessageSubmitFailure   = "Hubo un problema al enviar tu solicitud."
)

type Form struct {
	Tariff      string    `json:"tariff"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Description string    `json:"description"`
	Schedule    *Schedule `json:"schedule,omitempty"`
}

func (f Form) trimmed() Form {
	f.Tariff = strings.TrimSpace(f.Tariff)
	f.Origin = strings.TrimSpace(f.Origin)
	f.Destination = strings.TrimSpace(f.Destination)
	f.Description = strings.TrimSpace(f.Description)
	if f.Schedule != nil {
		s := Schedule{Date: strings.TrimSpace(f.Schedule.Date), Time: strings.TrimSpace(f.Schedule.Time)}
		if s.Date == "" && s.Time == "" {
			f.Schedule = nil
		} else {
			f.Schedule = &s
		}
	}
	return f
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	if len(parts) == 0 {
		return "validation failed"
	}
	return strings.Join(parts, "; ")
}

// Confirmation is the reviewed request shown before it is sent.
type Confirmation struct {
	Tariff      Tariff     `json:"tariff"`
	Origin      string     `json:"origin"`
	Destination string     `json:"destination"`
	Description string     `json:"description"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
}

type Config struct {
	Tariffs       *TariffTable
	Location      *time.Location
	SubmitTimeout time.Duration
	Now           func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Tariffs == nil {
		c.Tariffs = DefaultTariffs()
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 30 * time.Second
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Validate checks a form and resolves it into a confirmation. Tariff, origin,
// destination and description are required; a schedule is optional but must
// name a bookable slot when present.
func Validate(form Form, cfg Config) (Confirmation, ValidationErrors) {
	cfg = cfg.withDefaults()
	form = form.trimmed()
	var verrs ValidationErrors

	tariff, ok := cfg.Tariffs.Lookup(form.Tariff)
	if !ok {
		verrs = append(verrs, FieldError{Field: "tariff", Message: MessageUnknownTariff})
	}
	if form.Origin == "" {
		verrs = append(verrs, FieldError{Field: "origin", Message: MessageMissingDetails})
	}
	if form.Destination == "" {
		verrs = append(verrs, FieldError{Field: "destination", Message: MessageMissingDetails})
	}
	if form.Description == "" {
		verrs = append(verrs, FieldError{Field: "description", Message: MessageMissingDetails})
	}

	var at *time.Time
	if form.Schedule != nil {
		if form.Schedule.Date == "" || form.Schedule.Time == "" {
			verrs = append(verrs, FieldError{Field: "schedule", Message: MessageMissingSchedule})
		} else if t, err := form.Schedule.Resolve(cfg.Now(), cfg.Location); err != nil {
			verrs = append(verrs, FieldError{Field: "schedule", Message: MessageMissingSchedule})
		} else {
			at = &t
		}
	}
	if len(verrs) > 0 {
		return Confirmation{}, verrs
	}
	return Confirmation{
		Tariff:      tariff,
		Origin:      form.Origin,
		Destination: form.Destination,
		Description: form.Description,
		ScheduledAt: at,
	}, nil
}

var (
	ErrInvalidStep        = errors.New("service request: invalid step")
	ErrSubmissionInFlight = errors.New("service request: a submission is already in flight")
)

// Flow is the per-session service-request form: details, confirmation,
// submitted. It follows the same rules as cart checkout: nothing is sent
// before confirmation, a failure keeps the form, one submission at a time.
type Flow struct {
	sessionID uuid.UUID
	cfg       Config

	mu           sync.Mutex
	step         Step
	form         Form
	confirmation *Confirmation
	inFlight     bool
	lastID       string
}

func NewFlow(sessionID uuid.UUID, cfg Config) *Flow {
	return &Flow{sessionID: sessionID, cfg: cfg.withDefaults(), step: StepDetails}
}

type View struct {
	Step         Step          `json:"step"`
	Form         Form          `json:"form"`
	Confirmation *Confirmation `json:"confirmation,omitempty"`
	RequestID    string        `json:"requestId,omitempty"`
}

func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewLocked()
}

func (f *Flow) viewLocked() View {
	v := View{Step: f.step, Form: f.form, RequestID: f.lastID}
	if f.confirmation != nil {
		c := *f.confirmation
		v.Confirmation = &c
	}
	return v
}

// Confirm validates the form and moves to the confirmation step. On failure
// the flow stays on details with the submitted form kept.
func (f *Flow) Confirm(form Form) (View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return f.viewLocked(), ErrSubmissionInFlight
	}
	f.form = form.trimmed()
	conf, verrs := Validate(f.form, f.cfg)
	if len(verrs) > 0 {
		f.step = StepDetails
		f.confirmation = nil
		return f.viewLocked(), verrs
	}
	f.confirmation = &conf
	f.step = StepConfirmation
	return f.viewLocked(), nil
}

// Edit goes back to details keeping the form ("Modificar").
func (f *Flow) Edit() (View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return f.viewLocked(), ErrSubmissionInFlight
	}
	f.step = StepDetails
	f.confirmation = nil
	return f.viewLocked(), nil
}

type Outcome struct {
	View         View
	Notification notification.Notification
	RequestID    string
}

func (f *Flow) Submit(ctx context.Context, svc intake.ServiceIntake) (Outcome, error) {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return Outcome{}, ErrSubmissionInFlight
	}
	if f.step != StepConfirmation || f.confirmation == nil {
		v := f.viewLocked()
		f.mu.Unlock()
		return Outcome{View: v}, ErrInvalidStep
	}
	conf := *f.confirmation
	f.inFlight = true
	f.mu.Unlock()

	req := intake.ServiceRequest{
		SessionID:   f.sessionID,
		Tariff:      conf.Tariff.Code,
		Price:       conf.Tariff.Price,
		Origin:      conf.Origin,
		Destination: conf.Destination,
		Description: conf.Description,
		ScheduledAt: conf.ScheduledAt,
	}
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.cfg.SubmitTimeout)
	res, err := svc.SubmitServiceRequest(callCtx, req)
	cancel()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
	now := f.cfg.Now()
	if err != nil {
		n := notification.New(notification.Failure, MessageSubmitFailure, now)
		if !intake.IsCollaboratorError(err) {
			err = &intake.CollaboratorError{Op: "submit service request", Err: err}
		}
		return Outcome{View: f.viewLocked(), Notification: n}, err
	}
	f.form = Form{}
	f.confirmation = nil
	f.step = StepSubmitted
	f.lastID = res.OrderID
	n := notification.New(notification.Success, MessageSubmitSuccess, now)
	return Outcome{View: f.viewLocked(), Notification: n, RequestID: res.OrderID}, nil
}

// Reset starts a new request after a submitted one.
func (f *Flow) Reset() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.inFlight {
		f.step = StepDetails
		f.form = Form{}
		f.confirmation = nil
	}
	return f.viewLocked()
}
