package domain

import "time"

// OrderStatus enumerates the lifecycle states of a client order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderPriority qualifies how urgently an order should be scheduled.
type OrderPriority string

const (
	OrderPriorityLow    OrderPriority = "low"
	OrderPriorityNormal OrderPriority = "normal"
	OrderPriorityHigh   OrderPriority = "high"
	OrderPriorityUrgent OrderPriority = "urgent"
)

// Order is the primary client purchase request. Creating one triggers the
// lot provisioning pass which populates the Linked* identifiers.
type Order struct {
	ID                    string
	OrderNumber           string
	ClientName            string
	RequestedDeliveryDate time.Time
	Priority              OrderPriority
	Status                OrderStatus
	Items                 []OrderItem
	Notes                 string
	Progress              int
	TotalProcessingTime   int

	// Linkage fields, nil until the matching lot record was created.
	LinkedProductionLotID    *string
	LinkedQualitySharedLotID *string
	LinkedQualityLotID       *string
	LinkedWasteTrackingLotID *string
	LinkedNewEntryLotID      *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem is a single requested line with its estimated processing time in minutes.
type OrderItem struct {
	Name           string
	Quantity       float64
	Unit           string
	ProcessingTime int
}

// FirstProductName returns the product of the first line item, used to seed
// the lot record headers. Empty when the order carries no items.
func (o Order) FirstProductName() string {
	if len(o.Items) == 0 {
		return ""
	}
	return o.Items[0].Name
}

var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// CanTransition reports whether an order status change is allowed.
func CanTransition(current, target OrderStatus) bool {
	if current == target {
		return true
	}
	for _, next := range orderStatusTransitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// ValidOrderStatus reports whether the value is one of the known states.
func ValidOrderStatus(status OrderStatus) bool {
	switch status {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}
