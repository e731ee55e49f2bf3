package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/estrella-backend/internal/clients/intake"
	"github.com/yungbote/estrella-backend/internal/domain/notification"
	"github.com/yungbote/estrella-backend/internal/modules/servicerequest"
	"github.com/yungbote/estrella-backend/internal/modules/support"
	"github.com/yungbote/estrella-backend/internal/observability"
	pkgerrors "github.com/yungbote/estrella-backend/internal/pkg/errors"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

type Asker interface {
	Ask(ctx context.Context, history []support.Message, message string) (support.Reply, error)
}

type SupportAnswer struct {
	Reply        support.Reply              `json:"reply"`
	Notification *notification.Notification `json:"notification,omitempty"`
}

type SupportContact struct {
	Greeting string `json:"greeting"`
	WhatsApp string `json:"whatsapp"`
}

type SupportService interface {
	// Ask always returns a reply to show. On an assistant failure the reply
	// is the fixed apology and err is a CollaboratorError.
	Ask(ctx context.Context, history []support.Message, message string) (SupportAnswer, error)
	Contact() SupportContact
}

type supportService struct {
	log       *logger.Logger
	assistant Asker
	notifier  StorefrontNotifier
	whatsapp  string
}

// NewSupportService accepts a nil assistant when no model is configured;
// every question then gets the apology.
func NewSupportService(log *logger.Logger, assistant Asker, notifier StorefrontNotifier, whatsappNumber string) SupportService {
	if whatsappNumber == "" {
		whatsappNumber = servicerequest.DefaultWhatsAppNumber
	}
	return &supportService{
		log:       log.With("service", "SupportService"),
		assistant: assistant,
		notifier:  notifier,
		whatsapp:  whatsappNumber,
	}
}

func (s *supportService) Ask(ctx context.Context, history []support.Message, message string) (SupportAnswer, error) {
	var (
		reply support.Reply
		err   error
	)
	if s.assistant == nil {
		err = &intake.CollaboratorError{Op: "support assistant", Err: errors.New("assistant not configured")}
	} else {
		ctx, span := observability.StartSpan(ctx, "support.ask")
		start := time.Now()
		reply, err = s.assistant.Ask(ctx, history, message)
		observability.EndSpan(span, err)
		metrics := observability.Current()
		metrics.ObserveAssistant(time.Since(start), err)
		for _, tr := range reply.Tools {
			status := "ok"
			if strings.HasPrefix(tr.Output, `{"error"`) {
				status = "error"
			}
			metrics.IncAssistantToolCall(string(tr.Name), status)
		}
	}
	if err == nil {
		return SupportAnswer{Reply: reply}, nil
	}
	if errors.Is(err, support.ErrEmptyMessage) || errors.Is(err, support.ErrInvalidRole) {
		return SupportAnswer{}, fmt.Errorf("%w: %w", pkgerrors.ErrInvalidArgument, err)
	}

	s.log.Warn("Support assistant failed", "error", err)
	n := failure(support.FailureReply)
	if sid, _, serr := requestSession(ctx); serr == nil {
		s.notifier.Notify(ctx, sid, n)
	}
	if !intake.IsCollaboratorError(err) {
		err = &intake.CollaboratorError{Op: "support assistant", Err: err}
	}
	return SupportAnswer{Reply: support.Reply{Text: support.FailureReply}, Notification: &n}, err
}

func (s *supportService) Contact() SupportContact {
	return SupportContact{
		Greeting: support.Greeting,
		WhatsApp: servicerequest.WhatsAppLink(s.whatsapp, servicerequest.DefaultWhatsAppMessage),
	}
}
