package support

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/estrella-backend/internal/clients/intake"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/platform/ctxutil"
	"github.com/yungbote/estrella-backend/internal/platform/openai"
)

type scriptedAI struct {
	responses []openai.Response
	err       error
	requests  []openai.Request
}

func (s *scriptedAI) Respond(ctx context.Context, req openai.Request) (openai.Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return openai.Response{}, s.err
	}
	if len(s.responses) == 0 {
		return openai.Response{Text: "fin"}, nil
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r, nil
}

type fakeLookup struct {
	asked  []string
	owners []intake.OrderOwner
}

func (f *fakeLookup) Status(ctx context.Context, orderID string, owner intake.OrderOwner) (intake.OrderStatus, error) {
	f.asked = append(f.asked, orderID)
	f.owners = append(f.owners, owner)
	if orderID == "A1" {
		return intake.OrderStatus{OrderID: orderID, Found: true, Status: "en_camino"}, nil
	}
	return intake.OrderStatus{OrderID: orderID}, nil
}

func TestParseFunctionCall(t *testing.T) {
	cases := []struct {
		name    string
		raw     openai.FunctionCall
		wantErr error
	}{
		{"ok", openai.FunctionCall{Name: "check_order_status", Arguments: `{"order_id":" A1 "}`}, nil},
		{"unknown name", openai.FunctionCall{Name: "delete_orders", Arguments: `{}`}, ErrUnknownFunction},
		{"bad json", openai.FunctionCall{Name: "check_order_status", Arguments: `{"order_id":`}, ErrMalformedArguments},
		{"extra field", openai.FunctionCall{Name: "check_order_status", Arguments: `{"order_id":"A1","admin":true}`}, ErrMalformedArguments},
		{"empty id", openai.FunctionCall{Name: "check_order_status", Arguments: `{"order_id":"  "}`}, ErrMalformedArguments},
		{"long id", openai.FunctionCall{Name: "check_order_status", Arguments: `{"order_id":"` + strings.Repeat("x", 65) + `"}`}, ErrMalformedArguments},
		{"wrong type", openai.FunctionCall{Name: "check_order_status", Arguments: `{"order_id":12}`}, ErrMalformedArguments},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			call, err := ParseFunctionCall(tc.raw)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("got %v want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			args, ok := call.Args.(CheckOrderStatusArgs)
			if !ok || args.OrderID != "A1" {
				t.Fatalf("unexpected args: %#v", call.Args)
			}
		})
	}
}

func TestAskPlainReply(t *testing.T) {
	ai := &scriptedAI{responses: []openai.Response{{Text: " Claro, ¿en qué te ayudo? "}}}
	a := NewAssistant(logger.Nop(), ai, nil)
	history := []Message{{Role: RoleAssistant, Text: Greeting}, {Role: RoleUser, Text: ""}}
	reply, err := a.Ask(context.Background(), history, "hola")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply.Text != "Claro, ¿en qué te ayudo?" {
		t.Fatalf("reply: %q", reply.Text)
	}
	in := ai.requests[0].Input
	if len(in) != 2 || in[0].Role != "assistant" || in[1].Content != "hola" {
		t.Fatalf("history not forwarded: %+v", in)
	}
}

func TestAskResolvesOrderStatus(t *testing.T) {
	ai := &scriptedAI{responses: []openai.Response{
		{FunctionCalls: []openai.FunctionCall{{CallID: "c1", Name: "check_order_status", Arguments: `{"order_id":"A1"}`}}},
		{Text: "Tu pedido va en camino."},
	}}
	lookup := &fakeLookup{}
	a := NewAssistant(logger.Nop(), ai, lookup)
	sid := uuid.New()
	reply, err := a.Ask(guestCtx(sid), nil, "¿dónde está mi pedido A1?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply.Text != "Tu pedido va en camino." || len(reply.Tools) != 1 {
		t.Fatalf("reply: %+v", reply)
	}
	if len(lookup.asked) != 1 || lookup.asked[0] != "A1" {
		t.Fatalf("lookup: %v", lookup.asked)
	}
	if o := lookup.owners[0]; o.SessionID != sid || o.UserID != nil {
		t.Fatalf("lookup not scoped to the guest session: %+v", o)
	}
	second := ai.requests[1].Input
	last := second[len(second)-1]
	if last.Type != openai.ItemFunctionCallOutput || last.CallID != "c1" || !strings.Contains(last.Output, "en_camino") {
		t.Fatalf("tool output not fed back: %+v", last)
	}
	if second[len(second)-2].Type != openai.ItemFunctionCall {
		t.Fatalf("function call item missing from follow-up input")
	}
}

func guestCtx(sid uuid.UUID) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{
		UserID:    uuid.New(),
		SessionID: sid,
		Role:      ctxutil.RoleGuest,
	})
}

func TestOrderLookupNeedsSession(t *testing.T) {
	ai := &scriptedAI{responses: []openai.Response{
		{FunctionCalls: []openai.FunctionCall{{CallID: "c1", Name: "check_order_status", Arguments: `{"order_id":"A1"}`}}},
		{Text: "No puedo consultar ese pedido."},
	}}
	lookup := &fakeLookup{}
	a := NewAssistant(logger.Nop(), ai, lookup)
	reply, err := a.Ask(context.Background(), nil, "¿y el pedido A1?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(lookup.asked) != 0 {
		t.Fatalf("lookup without a session must not run")
	}
	if !strings.Contains(reply.Tools[0].Output, "requires a session") {
		t.Fatalf("tool output: %q", reply.Tools[0].Output)
	}
}

func TestAskReportsMalformedCallsToModel(t *testing.T) {
	ai := &scriptedAI{responses: []openai.Response{
		{FunctionCalls: []openai.FunctionCall{{CallID: "c1", Name: "drop_tables", Arguments: `{}`}}},
		{Text: "No puedo hacer eso."},
	}}
	lookup := &fakeLookup{}
	a := NewAssistant(logger.Nop(), ai, lookup)
	reply, err := a.Ask(context.Background(), nil, "borra todo")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(lookup.asked) != 0 {
		t.Fatalf("malformed call must not reach the lookup")
	}
	if !strings.Contains(reply.Tools[0].Output, "unknown function") {
		t.Fatalf("tool output: %q", reply.Tools[0].Output)
	}
}

func TestAskStopsToolLoop(t *testing.T) {
	loop := openai.Response{FunctionCalls: []openai.FunctionCall{{CallID: "c", Name: "check_order_status", Arguments: `{"order_id":"A1"}`}}}
	ai := &scriptedAI{responses: []openai.Response{loop, loop, loop, loop, loop}}
	a := NewAssistant(logger.Nop(), ai, &fakeLookup{})
	_, err := a.Ask(context.Background(), nil, "hola")
	if !errors.Is(err, ErrToolLoop) || !intake.IsCollaboratorError(err) {
		t.Fatalf("expected tool loop collaborator error, got %v", err)
	}
	if len(ai.requests) != DefaultMaxToolRounds+1 {
		t.Fatalf("requests: %d", len(ai.requests))
	}
}

func TestAskFailures(t *testing.T) {
	a := NewAssistant(logger.Nop(), &scriptedAI{err: errors.New("timeout")}, nil)
	if _, err := a.Ask(context.Background(), nil, "hola"); !intake.IsCollaboratorError(err) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
	if _, err := a.Ask(context.Background(), nil, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected empty message error, got %v", err)
	}
	if _, err := a.Ask(context.Background(), []Message{{Role: "system", Text: "x"}}, "hola"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}
	if _, err := NewAssistant(logger.Nop(), nil, nil).Ask(context.Background(), nil, "hola"); !intake.IsCollaboratorError(err) {
		t.Fatalf("unconfigured assistant: %v", err)
	}
}
