package support

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/estrella-backend/internal/clients/intake"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/platform/ctxutil"
	"github.com/yungbote/estrella-backend/internal/platform/openai"
)

const (
	Greeting     = "¡Hola! Soy el asistente virtual de Estrella. ¿Cómo puedo ayudarte hoy con tus pedidos, restaurantes o servicios?"
	FailureReply = "Lo siento, estoy teniendo problemas para conectarme. Por favor, intenta de nuevo más tarde."
)

const instructions = `Eres el asistente virtual de Estrella, una app de entregas de comida y mandados.
Ayudas con pedidos, restaurantes y servicios de mandado (tarifas CÉNTTRICO, PLAZA y FORÁNEOS).
Responde en español, breve y amable. Para consultar un pedido usa la función check_order_status
con el número de pedido que te dé el cliente; nunca inventes estados. Si no puedes resolver algo,
sugiere contactar a soporte por WhatsApp.`

const (
	DefaultMaxToolRounds = 3
	maxHistory           = 40
)

var (
	ErrToolLoop     = errors.New("assistant kept calling tools")
	ErrEmptyMessage = errors.New("message required")
	ErrInvalidRole  = errors.New("invalid message role")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

type ToolResult struct {
	Name   FunctionName `json:"name"`
	Args   FunctionArgs `json:"args,omitempty"`
	Output string       `json:"output"`
}

type Reply struct {
	Text  string       `json:"text"`
	Tools []ToolResult `json:"tools,omitempty"`
}

// Assistant is stateless: every Ask carries the whole conversation.
type Assistant struct {
	log       *logger.Logger
	ai        openai.Client
	orders    intake.OrderLookup
	maxRounds int
}

func NewAssistant(log *logger.Logger, ai openai.Client, orders intake.OrderLookup) *Assistant {
	return &Assistant{
		log:       log.With("module", "SupportAssistant"),
		ai:        ai,
		orders:    orders,
		maxRounds: DefaultMaxToolRounds,
	}
}

func buildInput(history []Message, message string) ([]openai.InputItem, error) {
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	input := make([]openai.InputItem, 0, len(history)+1)
	for _, m := range history {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		switch m.Role {
		case RoleUser, RoleAssistant:
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, m.Role)
		}
		input = append(input, openai.Message(string(m.Role), text))
	}
	return append(input, openai.Message(string(RoleUser), message)), nil
}

// Ask runs one assistant turn. Function calls are parsed, resolved and fed
// back for at most maxRounds rounds. Any failure of the model call comes
// back as an *intake.CollaboratorError.
func (a *Assistant) Ask(ctx context.Context, history []Message, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}
	input, err := buildInput(history, message)
	if err != nil {
		return Reply{}, err
	}
	if a.ai == nil {
		return Reply{}, &intake.CollaboratorError{Op: "support assistant", Err: errors.New("assistant not configured")}
	}

	var reply Reply
	for round := 0; ; round++ {
		resp, err := a.ai.Respond(ctx, openai.Request{
			Instructions: instructions,
			Input:        input,
			Tools:        tools(),
			Temperature:  0.3,
		})
		if err != nil {
			a.log.Warn("Assistant call failed", append(ctxutil.LogFields(ctx), "round", round, "error", err)...)
			return Reply{}, &intake.CollaboratorError{Op: "support assistant", Err: err}
		}
		if len(resp.FunctionCalls) == 0 {
			reply.Text = strings.TrimSpace(resp.Text)
			return reply, nil
		}
		if round >= a.maxRounds {
			return Reply{}, &intake.CollaboratorError{Op: "support assistant", Err: ErrToolLoop}
		}
		for _, raw := range resp.FunctionCalls {
			input = append(input, openai.InputItem{
				Type:      openai.ItemFunctionCall,
				CallID:    raw.CallID,
				Name:      raw.Name,
				Arguments: raw.Arguments,
			})
			result := a.resolve(ctx, raw)
			reply.Tools = append(reply.Tools, result)
			input = append(input, openai.InputItem{
				Type:   openai.ItemFunctionCallOutput,
				CallID: raw.CallID,
				Output: result.Output,
			})
		}
	}
}

// resolve never fails the turn: problems are reported to the model as a
// tool error so it can answer the customer.
func (a *Assistant) resolve(ctx context.Context, raw openai.FunctionCall) ToolResult {
	call, err := ParseFunctionCall(raw)
	if err != nil {
		a.log.Warn("Rejected assistant function call", append(ctxutil.LogFields(ctx), "name", raw.Name, "error", err)...)
		return ToolResult{Name: call.Name, Output: toolError(err)}
	}
	switch args := call.Args.(type) {
	case CheckOrderStatusArgs:
		if a.orders == nil {
			return ToolResult{Name: call.Name, Args: args, Output: toolError(errors.New("order lookup unavailable"))}
		}
		owner, ok := lookupOwner(ctx)
		if !ok {
			return ToolResult{Name: call.Name, Args: args, Output: toolError(errors.New("order lookup requires a session"))}
		}
		st, err := a.orders.Status(ctx, args.OrderID, owner)
		if err != nil {
			return ToolResult{Name: call.Name, Args: args, Output: toolError(err)}
		}
		return ToolResult{Name: call.Name, Args: args, Output: toolJSON(st)}
	default:
		return ToolResult{Name: call.Name, Output: toolError(ErrUnknownFunction)}
	}
}

// lookupOwner scopes order lookups to the caller. Admins see every order.
func lookupOwner(ctx context.Context) (intake.OrderOwner, bool) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.SessionID == uuid.Nil {
		return intake.OrderOwner{}, false
	}
	if rd.Role == ctxutil.RoleAdmin {
		return intake.OrderOwner{}, true
	}
	owner := intake.OrderOwner{SessionID: rd.SessionID}
	if rd.Role == ctxutil.RoleUser && rd.UserID != uuid.Nil {
		id := rd.UserID
		owner.UserID = &id
	}
	return owner, true
}

func toolJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return toolError(err)
	}
	return string(raw)
}

func toolError(err error) string {
	raw, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(raw)
}
