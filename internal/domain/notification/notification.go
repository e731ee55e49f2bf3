package notification

import "time"

type Kind string

const (
	Success Kind = "success"
	Failure Kind = "failure"
	Info    Kind = "info"
)

// TTL is how long a toast stays up before the client dismisses it.
const TTL = 3 * time.Second

// Notification is a transient toast. Validation problems are not sent this
// way; they stay inline until fixed.
type Notification struct {
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func New(kind Kind, message string, now time.Time) Notification {
	return Notification{Kind: kind, Message: message, ExpiresAt: now.Add(TTL)}
}

// Active reports whether the toast is still showing at now.
func (n Notification) Active(now time.Time) bool {
	return now.Before(n.ExpiresAt)
}
