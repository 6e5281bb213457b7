package results

import (
	"context"
	"errors"
	"time"

	"argus-control/internal/protocol"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("results: not found")

// Record is one stored instrument response.
type Record struct {
	ID         string
	OrderID    string
	Type       string
	ReceivedAt time.Time
	SourceFile string
	Response   *protocol.ResponseRecord
}

// Filter narrows a List call. Zero values mean no restriction.
type Filter struct {
	OrderID string
	Type    string
	Since   time.Time
	Limit   int
}

// Store persists parsed responses.
type Store interface {
	Save(ctx context.Context, record *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Latest(ctx context.Context, orderType string) (*Record, error)
	List(ctx context.Context, filter Filter) ([]Record, error)
}
