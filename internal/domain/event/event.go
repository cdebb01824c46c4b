package event

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event about a user's invoices
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	UserID        string                 `json:"user_id"`
	InvoiceID     string                 `json:"invoice_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with generated ID and timestamp
func NewEvent(eventType Type, userID, invoiceID string, payload map[string]interface{}) *Event {
	id := uuid.NewString()
	return &Event{
		ID:            id,
		Type:          eventType,
		UserID:        userID,
		InvoiceID:     invoiceID,
		Payload:       copyPayload(payload, 0),
		Timestamp:     time.Now().UTC(),
		CorrelationID: id,
	}
}

// Follow creates an event caused by e, sharing its correlation ID
func (e *Event) Follow(eventType Type, payload map[string]interface{}) *Event {
	next := NewEvent(eventType, e.UserID, e.InvoiceID, payload)
	next.CorrelationID = e.CorrelationID
	return next
}

// WithPayload returns a copy of the event with key set in its payload
func (e *Event) WithPayload(key string, value interface{}) *Event {
	cp := *e
	cp.Payload = copyPayload(e.Payload, 1)
	cp.Payload[key] = value
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an integer value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

func copyPayload(src map[string]interface{}, extra int) map[string]interface{} {
	dst := make(map[string]interface{}, len(src)+extra)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
