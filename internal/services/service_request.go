package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/estrella-backend/internal/clients/intake"
	"github.com/yungbote/estrella-backend/internal/modules/servicerequest"
	"github.com/yungbote/estrella-backend/internal/observability"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

type Slots struct {
	Days  []servicerequest.Day `json:"days"`
	Times []string             `json:"times"`
}

type ServiceRequestService interface {
	Tariffs() []servicerequest.Tariff
	Slots() Slots
	View(ctx context.Context) (servicerequest.View, error)
	Confirm(ctx context.Context, form servicerequest.Form) (servicerequest.View, error)
	Edit(ctx context.Context) (servicerequest.View, error)
	Submit(ctx context.Context) (servicerequest.Outcome, error)
	Reset(ctx context.Context) (servicerequest.View, error)
}

type serviceRequestService struct {
	log      *logger.Logger
	intake   intake.ServiceIntake
	notifier StorefrontNotifier
	cfg      servicerequest.Config

	mu    sync.Mutex
	flows map[uuid.UUID]*servicerequest.Flow
}

func NewServiceRequestService(log *logger.Logger, svc intake.ServiceIntake, notifier StorefrontNotifier, cfg servicerequest.Config) ServiceRequestService {
	if cfg.Tariffs == nil {
		cfg.Tariffs = servicerequest.DefaultTariffs()
	}
	return &serviceRequestService{
		log:      log.With("service", "ServiceRequestService"),
		intake:   svc,
		notifier: notifier,
		cfg:      cfg,
		flows:    make(map[uuid.UUID]*servicerequest.Flow),
	}
}

func (s *serviceRequestService) flow(ctx context.Context) (*servicerequest.Flow, error) {
	sid, _, err := requestSession(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[sid]
	if !ok {
		f = servicerequest.NewFlow(sid, s.cfg)
		s.flows[sid] = f
	}
	return f, nil
}

func (s *serviceRequestService) Tariffs() []servicerequest.Tariff {
	return s.cfg.Tariffs.All()
}

func (s *serviceRequestService) Slots() Slots {
	now := timeNow()
	if s.cfg.Now != nil {
		now = s.cfg.Now()
	}
	loc := s.cfg.Location
	if loc == nil {
		loc = now.Location()
	}
	return Slots{Days: servicerequest.Days(now, loc), Times: servicerequest.TimeSlots()}
}

func (s *serviceRequestService) View(ctx context.Context) (servicerequest.View, error) {
	f, err := s.flow(ctx)
	if err != nil {
		return servicerequest.View{}, err
	}
	return f.View(), nil
}

func (s *serviceRequestService) Confirm(ctx context.Context, form servicerequest.Form) (servicerequest.View, error) {
	f, err := s.flow(ctx)
	if err != nil {
		return servicerequest.View{}, err
	}
	return f.Confirm(form)
}

func (s *serviceRequestService) Edit(ctx context.Context) (servicerequest.View, error) {
	f, err := s.flow(ctx)
	if err != nil {
		return servicerequest.View{}, err
	}
	return f.Edit()
}

func (s *serviceRequestService) Submit(ctx context.Context) (servicerequest.Outcome, error) {
	f, err := s.flow(ctx)
	if err != nil {
		return servicerequest.Outcome{}, err
	}
	tariff := ""
	if v := f.View(); v.Confirmation != nil {
		tariff = v.Confirmation.Tariff.Code
	}
	ctx, span := observability.StartSpan(ctx, "service_request.submit", attribute.String("tariff", tariff))
	out, err := f.Submit(ctx, s.intake)
	observability.EndSpan(span, err)
	if errors.Is(err, servicerequest.ErrSubmissionInFlight) || errors.Is(err, servicerequest.ErrInvalidStep) {
		return out, err
	}
	observability.Current().IncServiceRequest(tariff, err)
	sid, _, _ := requestSession(ctx)
	s.notifier.Notify(ctx, sid, out.Notification)
	if err != nil {
		s.log.Warn("Service request submission failed", "session_id", sid, "error", err)
		return out, err
	}
	s.log.Info("Service request submitted", "session_id", sid, "request_id", out.RequestID)
	return out, nil
}

func (s *serviceRequestService) Reset(ctx context.Context) (servicerequest.View, error) {
	f, err := s.flow(ctx)
	if err != nil {
		return servicerequest.View{}, err
	}
	return f.Reset(), nil
}
