package services

import (
	"context"
	"time"

	domain "github.com/agrilot/api/internal/domain"
)

// OrderService encapsulates order intake, reads, and status transitions.
// Creating an order also runs the lot provisioning pass before returning.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	ListOrders(ctx context.Context, filter OrderListQuery) (domain.CursorPage[domain.Order], error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (domain.Order, error)
}

// CreateOrderCommand carries the caller supplied order intake payload.
// OrderNumber is optional; when blank the service derives one from the
// creation timestamp.
type CreateOrderCommand struct {
	OrderNumber           string
	ClientName            string
	RequestedDeliveryDate *time.Time
	Priority              string
	Items                 []OrderItemInput
	Notes                 string
}

// OrderItemInput is one requested line item.
type OrderItemInput struct {
	Name           string
	Quantity       float64
	Unit           string
	ProcessingTime int
}

// OrderListQuery narrows and paginates order listings.
type OrderListQuery struct {
	Status     []domain.OrderStatus
	ClientName string
	From       *time.Time
	To         *time.Time
	Pagination domain.Pagination
}

// OrderStatusTransitionCommand requests a guarded order status change.
type OrderStatusTransitionCommand struct {
	OrderID        string
	TargetStatus   domain.OrderStatus
	ExpectedStatus *domain.OrderStatus
}

// ProvisioningService runs the lot provisioning pass for an order: the five
// record writers, the linkback patch, and the legacy fallback on failure.
type ProvisioningService interface {
	Provision(ctx context.Context, order domain.Order) (ProvisionResult, error)
	Retry(ctx context.Context, orderID string) (ProvisionResult, error)
	Status(ctx context.Context, orderID string) (domain.ProvisionLog, error)
}

// ProvisionResult aggregates the per-variant outcomes of one pass.
type ProvisionResult struct {
	OrderID     string
	OrderNumber string
	// IDs holds the store-assigned identifier per variant that succeeded.
	IDs map[domain.LotVariant]string
	// Errors holds the failure per variant that did not succeed.
	Errors map[domain.LotVariant]error
	// LinkbackDone reports whether the order patch was applied.
	LinkbackDone bool
	// FallbackDone reports whether a legacy fallback record was written.
	FallbackDone bool
}

// Complete reports whether every variant succeeded.
func (r ProvisionResult) Complete() bool {
	return len(r.Errors) == 0 && len(r.IDs) == len(domain.LotVariants)
}

// Order event types published on the order lifecycle topic.
const (
	OrderEventCreated       = "order.created"
	OrderEventProvisioned   = "order.provisioned"
	OrderEventStatusChanged = "order.status.changed"
)

// OrderEventMessage is the payload published for order lifecycle events.
type OrderEventMessage struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	ClientName  string    `json:"clientName,omitempty"`
	Status      string    `json:"status,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error)
}

// SystemService aggregates operational health information for probes.
type SystemService interface {
	Health(ctx context.Context) (domain.SystemHealthReport, error)
}
