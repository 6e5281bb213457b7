package events

import "time"

// OrderSubmitted fires after an order document landed in the Inbox and the
// order was recorded as open.
type OrderSubmitted struct {
	EventID    string    `json:"event_id"`
	OrderID    string    `json:"order_id"`
	OrderType  string    `json:"order_type"`
	FilePath   string    `json:"file_path"`
	CreatedBy  string    `json:"created_by"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderFinished fires when a response closed an order successfully.
type OrderFinished struct {
	EventID    string    `json:"event_id"`
	OrderID    string    `json:"order_id"`
	OrderType  string    `json:"order_type"`
	ResponseID string    `json:"response_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderFailed fires when the instrument reported an error for an order.
type OrderFailed struct {
	EventID    string    `json:"event_id"`
	OrderID    string    `json:"order_id"`
	OrderType  string    `json:"order_type"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderExpired fires for orders that never received a response.
type OrderExpired struct {
	EventID    string    `json:"event_id"`
	OrderID    string    `json:"order_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
