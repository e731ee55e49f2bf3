package checkout

import "errors"

type State string

const (
	StateEditing    State = "editing"
	StateConfirming State = "confirming"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
	StateFailed     State = "failed"
)

var (
	ErrInvalidTransition  = errors.New("checkout: invalid state transition")
	ErrSubmissionInFlight = errors.New("checkout: a submission is already in flight")
)

// canConfirm: a failed submission may be re-confirmed with new contact data.
func (s State) canConfirm() bool {
	return s == StateEditing || s == StateConfirming || s == StateFailed || s == StateSubmitted
}

func (s State) canSubmit() bool {
	return s == StateConfirming || s == StateFailed
}

// reopens reports whether a cart edit must send the flow back to editing.
func (s State) reopens() bool {
	return s == StateConfirming || s == StateFailed || s == StateSubmitted
}
