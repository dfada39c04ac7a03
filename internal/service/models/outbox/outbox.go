package outbox

import "time"

// Destination names the exchange and routing key a message is published to,
// and the queue bound to them.
type Destination struct {
	Exchange   string
	RoutingKey string
	Queue      string
}

// Message is an audit publication parked until the broker accepts it.
type Message struct {
	ID          int64
	MessageID   string
	Destination Destination
	Payload     []byte
	ContentType string
	Retries     int
	MaxRetries  int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	NextRetryAt time.Time
}

// New builds a message for a publication that just failed with cause.
// The first retry is due after delay.
func New(id string, dest Destination, payload []byte, contentType string, maxRetries int, cause error, now time.Time, delay time.Duration) Message {
	return Message{
		MessageID:   id,
		Destination: dest,
		Payload:     payload,
		ContentType: contentType,
		MaxRetries:  maxRetries,
		LastError:   cause.Error(),
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRetryAt: now.Add(delay),
	}
}

// Exhausted reports whether the message has used up its retries.
func (m Message) Exhausted() bool {
	return m.Retries >= m.MaxRetries
}
