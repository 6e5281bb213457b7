package orders

import (
	"errors"
	"time"
)

// Order lifecycle statuses. An order leaves "open" exactly once.
const (
	StatusOpen     = "open"
	StatusFinished = "finished"
	StatusFailed   = "failed"
	StatusExpired  = "expired"
)

var (
	// ErrNotFound is returned when no order exists for an id.
	ErrNotFound = errors.New("orders: not found")
	// ErrInvalidTransition is returned when a close is attempted on an
	// order that already left the open state.
	ErrInvalidTransition = errors.New("orders: invalid status transition")
)

// Order represents one order issued to the instrument.
type Order struct {
	OrderID   string
	Type      string
	Name      string
	Status    string
	CreatedBy string
	FilePath  string // Inbox file the order was delivered as
	Document  []byte // archived request XML
	CreatedAt time.Time
	ClosedAt  time.Time
	// ResponseRef is the stored response record that finished the order.
	ResponseRef string
	Error       string
}

// Open reports whether the order still awaits a response.
func (o *Order) Open() bool {
	return o.Status == StatusOpen
}
