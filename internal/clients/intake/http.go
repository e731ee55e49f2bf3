package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/estrella-backend/internal/pkg/httpx"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/platform/ctxutil"
)

type HTTPConfig struct {
	OrderURL   string
	ServiceURL string
	Token      string
	Timeout    time.Duration
}

// HTTPIntake forwards to remote intake endpoints. The endpoints have no
// idempotency key, so requests are sent exactly once.
type HTTPIntake struct {
	log        *logger.Logger
	cfg        HTTPConfig
	httpClient *http.Client
}

func NewHTTPIntake(log *logger.Logger, cfg HTTPConfig) *HTTPIntake {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPIntake{
		log:        log.With("client", "HTTPIntake"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (h *HTTPIntake) SubmitOrder(ctx context.Context, req OrderRequest) (Confirmation, error) {
	if strings.TrimSpace(h.cfg.OrderURL) == "" {
		return Confirmation{}, &CollaboratorError{Op: "submit order", Err: fmt.Errorf("order intake url not configured")}
	}
	conf, err := h.post(ctx, h.cfg.OrderURL, req)
	if err != nil {
		return Confirmation{}, &CollaboratorError{Op: "submit order", Err: err}
	}
	return conf, nil
}

func (h *HTTPIntake) SubmitServiceRequest(ctx context.Context, req ServiceRequest) (Confirmation, error) {
	if strings.TrimSpace(h.cfg.ServiceURL) == "" {
		return Confirmation{}, &CollaboratorError{Op: "submit service request", Err: fmt.Errorf("service intake url not configured")}
	}
	conf, err := h.post(ctx, h.cfg.ServiceURL, req)
	if err != nil {
		return Confirmation{}, &CollaboratorError{Op: "submit service request", Err: err}
	}
	return conf, nil
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *HTTPIntake) post(ctx context.Context, url string, body any) (Confirmation, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return Confirmation{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return Confirmation{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.cfg.Token)
	}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			req.Header.Set("X-Trace-Id", td.TraceID)
		}
		if td.RequestID != "" {
			req.Header.Set("X-Request-Id", td.RequestID)
		}
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return Confirmation{}, err
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
	if readErr != nil {
		return Confirmation{}, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		msg := string(raw)
		if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
			msg = eb.Error
		}
		h.log.Warn("Intake rejected request", append(ctxutil.LogFields(ctx), "url", url, "status", resp.StatusCode)...)
		return Confirmation{}, &httpx.StatusError{Service: "intake", StatusCode: resp.StatusCode, Body: msg}
	}

	var conf Confirmation
	if err := json.Unmarshal(raw, &conf); err != nil {
		return Confirmation{}, fmt.Errorf("decode intake confirmation: %w", err)
	}
	if !conf.Success {
		return Confirmation{}, fmt.Errorf("intake reported failure")
	}
	return conf, nil
}
