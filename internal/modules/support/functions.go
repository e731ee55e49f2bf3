package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/estrella-backend/internal/platform/openai"
)

var (
	ErrUnknownFunction    = errors.New("unknown function")
	ErrMalformedArguments = errors.New("malformed function arguments")
)

type FunctionName string

const FuncCheckOrderStatus FunctionName = "check_order_status"

const maxOrderIDLength = 64

// FunctionArgs is implemented by each validated argument struct. Add a
// case to ParseFunctionCall and a tool definition for every new one.
type FunctionArgs interface {
	function() FunctionName
}

type CheckOrderStatusArgs struct {
	OrderID string `json:"order_id"`
}

func (CheckOrderStatusArgs) function() FunctionName { return FuncCheckOrderStatus }

func (a CheckOrderStatusArgs) validate() error {
	id := strings.TrimSpace(a.OrderID)
	if id == "" {
		return fmt.Errorf("%w: order_id required", ErrMalformedArguments)
	}
	if utf8.RuneCountInString(id) > maxOrderIDLength {
		return fmt.Errorf("%w: order_id too long", ErrMalformedArguments)
	}
	return nil
}

// FunctionCall is a model function call after parsing. Args is never nil.
type FunctionCall struct {
	CallID string
	Name   FunctionName
	Args   FunctionArgs
}

// ParseFunctionCall turns a raw function_call item into a typed call.
// Unknown names, unknown fields and failed validation are all rejected.
func ParseFunctionCall(raw openai.FunctionCall) (FunctionCall, error) {
	call := FunctionCall{CallID: raw.CallID, Name: FunctionName(raw.Name)}
	switch call.Name {
	case FuncCheckOrderStatus:
		var args CheckOrderStatusArgs
		if err := decodeStrict(raw.Arguments, &args); err != nil {
			return call, err
		}
		if err := args.validate(); err != nil {
			return call, err
		}
		args.OrderID = strings.TrimSpace(args.OrderID)
		call.Args = args
		return call, nil
	default:
		return call, fmt.Errorf("%w: %q", ErrUnknownFunction, raw.Name)
	}
}

func decodeStrict(raw string, out any) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: empty arguments", ErrMalformedArguments)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedArguments, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrMalformedArguments)
	}
	return nil
}

func tools() []openai.Tool {
	return []openai.Tool{
		openai.FunctionTool(string(FuncCheckOrderStatus),
			"Consulta el estado de un pedido de Estrella por su número de pedido.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"order_id": map[string]any{
						"type":        "string",
						"description": "Número de pedido que el cliente recibió al confirmar.",
					},
				},
				"required":             []string{"order_id"},
				"additionalProperties": false,
			}),
	}
}
