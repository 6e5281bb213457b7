package application

import (
	"context"
	"errors"
	"time"

	"argus-control/internal/auth"
	"argus-control/internal/eventing"
	"argus-control/internal/exchange"
	"argus-control/internal/observability/metrics"
	ordersevents "argus-control/internal/orders/application/events"
	orders "argus-control/internal/orders/domain"
	"argus-control/internal/protocol"
)

// EventPublisher is the minimal publish interface the service needs.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Service issues orders to the instrument: it generates the id, encodes the
// document, delivers it to the Inbox and records the open order.
type Service struct {
	repo  orders.Repository
	codec *protocol.Codec
	ids   *protocol.IDGenerator
	dirs  exchange.Dirs
	bus   EventPublisher
	now   func() time.Time
}

// NewService constructs an order service.
func NewService(repo orders.Repository, codec *protocol.Codec, ids *protocol.IDGenerator, dirs exchange.Dirs, bus EventPublisher) (*Service, error) {
	if repo == nil {
		return nil, errors.New("orders: nil repo")
	}
	if codec == nil {
		return nil, errors.New("orders: nil codec")
	}
	if ids == nil {
		return nil, errors.New("orders: nil id generator")
	}
	if bus == nil {
		return nil, errors.New("orders: nil publisher")
	}
	return &Service{
		repo:  repo,
		codec: codec,
		ids:   ids,
		dirs:  dirs,
		bus:   bus,
		now:   time.Now,
	}, nil
}

// Submit validates and issues any order payload. Validation failures return
// before anything touches the filesystem or the store.
func (s *Service) Submit(ctx context.Context, req protocol.Request) (*orders.Order, error) {
	if req == nil {
		return nil, errors.New("orders: nil request")
	}

	id := s.ids.Generate(req.IDPrefix())
	doc, err := s.codec.Encode(id.String(), req)
	if err != nil {
		return nil, err
	}

	path, err := s.dirs.WriteOrder(id.InboxFilename(), doc)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	order := &orders.Order{
		OrderID:   id.String(),
		Type:      string(req.Type()),
		Name:      requestName(req),
		Status:    orders.StatusOpen,
		CreatedBy: auth.UserFromContext(ctx),
		FilePath:  path,
		Document:  doc,
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}
	metrics.IncOrderIssued(order.Type)

	event := ordersevents.OrderSubmitted{
		EventID:    eventing.NewEventID(),
		OrderID:    order.OrderID,
		OrderType:  order.Type,
		FilePath:   path,
		CreatedBy:  order.CreatedBy,
		OccurredAt: now,
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		return nil, err
	}
	return order, nil
}

// SubmitSystemStateQuery issues a GSS order.
func (s *Service) SubmitSystemStateQuery(ctx context.Context) (*orders.Order, error) {
	return s.Submit(ctx, protocol.SystemStateQuery{})
}

// SubmitSystemParamsQuery issues a GSP order.
func (s *Service) SubmitSystemParamsQuery(ctx context.Context) (*orders.Order, error) {
	return s.Submit(ctx, protocol.SystemParamsQuery{})
}

// SubmitMeasurement issues an OR order.
func (s *Service) SubmitMeasurement(ctx context.Context, m protocol.MeasurementOrder) (*orders.Order, error) {
	return s.Submit(ctx, m)
}

// SubmitSMDIQuery issues an IFL or ITL database query.
func (s *Service) SubmitSMDIQuery(ctx context.Context, q protocol.SMDIQuery) (*orders.Order, error) {
	return s.Submit(ctx, q)
}

// GetOrder fetches one order.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	if orderID == "" {
		return nil, errors.New("orders: order id required")
	}
	return s.repo.GetByID(ctx, orderID)
}

// ListByStatus lists orders in a status, oldest first.
func (s *Service) ListByStatus(ctx context.Context, status string, limit int) ([]orders.Order, error) {
	if status == "" {
		status = orders.StatusOpen
	}
	return s.repo.ListByStatus(ctx, status, limit)
}

// ExpireStale expires open orders older than maxAge and announces every
// expiry on the bus.
func (s *Service) ExpireStale(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, errors.New("orders: max age must be positive")
	}
	now := s.now().UTC()
	expired, err := s.repo.MarkExpiredBefore(ctx, now.Add(-maxAge))
	if err != nil {
		return len(expired), err
	}
	metrics.AddOrdersExpired(len(expired))
	for _, orderID := range expired {
		_ = s.bus.Publish(ctx, ordersevents.OrderExpired{
			EventID:    eventing.NewEventID(),
			OrderID:    orderID,
			OccurredAt: now,
		})
	}
	return len(expired), nil
}

func requestName(req protocol.Request) string {
	switch r := req.(type) {
	case protocol.MeasurementOrder:
		return r.Name
	case protocol.SMDIQuery:
		return r.ListName
	default:
		return ""
	}
}
