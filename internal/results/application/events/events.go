package events

import "time"

// ResponseStored fires after an Outbox file was parsed and persisted.
type ResponseStored struct {
	EventID    string    `json:"event_id"`
	ResponseID string    `json:"response_id"`
	OrderID    string    `json:"order_id"`
	OrderType  string    `json:"order_type"`
	SourceFile string    `json:"source_file"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ResponseParseFailed fires when an Outbox file did not parse. The file is
// left in place for inspection.
type ResponseParseFailed struct {
	EventID    string    `json:"event_id"`
	SourceFile string    `json:"source_file"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
