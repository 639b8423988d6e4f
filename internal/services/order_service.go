package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/agrilot/api/internal/domain"
	"github.com/agrilot/api/internal/repositories"
)

const (
	orderIDPrefix     = "ord_"
	orderNumberPrefix = "ORD-"

	defaultPassTimeout = 45 * time.Second
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates an invalid status transition was attempted.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates concurrent modification conflicts.
	ErrOrderConflict = errors.New("order: conflict")
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Provisioner ProvisioningService
	Events      OrderEventPublisher
	Clock       func() time.Time
	IDGenerator func() string
	// PassTimeout bounds the provisioning pass run during order creation.
	PassTimeout time.Duration
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders      repositories.OrderRepository
	provisioner ProvisioningService
	events      OrderEventPublisher
	clock       func() time.Time
	newID       func() string
	passTimeout time.Duration
	sanitize    func(string) string
	logger      func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Provisioner == nil {
		return nil, errors.New("order service: provisioning service is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	passTimeout := deps.PassTimeout
	if passTimeout <= 0 {
		passTimeout = defaultPassTimeout
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	policy := bluemonday.StrictPolicy()

	return &orderService{
		orders:      deps.Orders,
		provisioner: deps.Provisioner,
		events:      deps.Events,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:       idGen,
		passTimeout: passTimeout,
		sanitize: func(value string) string {
			return strings.TrimSpace(policy.Sanitize(value))
		},
		logger: logger,
	}, nil
}

// CreateOrder validates and persists the order, then runs the lot provisioning
// pass. The pass executes on a context detached from the caller so a client
// disconnect never aborts writes halfway; from the caller's perspective the
// submission succeeds as soon as the order itself is committed.
func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	order, err := s.buildOrder(cmd)
	if err != nil {
		return domain.Order{}, err
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEventMessage{
		Type:        OrderEventCreated,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		ClientName:  order.ClientName,
		Status:      string(order.Status),
		OccurredAt:  order.CreatedAt,
	})

	passCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.passTimeout)
	defer cancel()

	result, err := s.provisioner.Provision(passCtx, order)
	if err != nil {
		s.logger(ctx, "order.provisioning.failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return order, nil
	}

	// Only reflect linkage the patch actually persisted; when the linkback
	// failed the stored order still has null link fields.
	if result.LinkbackDone {
		applyLinkage(&order, result)
		order.UpdatedAt = s.clock()
	}

	return order, nil
}

func (s *orderService) buildOrder(cmd CreateOrderCommand) (domain.Order, error) {
	clientName := strings.TrimSpace(cmd.ClientName)
	if clientName == "" {
		return domain.Order{}, fmt.Errorf("%w: client name is required", ErrOrderInvalidInput)
	}

	priority := domain.OrderPriorityNormal
	if trimmed := strings.TrimSpace(cmd.Priority); trimmed != "" {
		priority = domain.OrderPriority(trimmed)
		switch priority {
		case domain.OrderPriorityLow, domain.OrderPriorityNormal, domain.OrderPriorityHigh, domain.OrderPriorityUrgent:
		default:
			return domain.Order{}, fmt.Errorf("%w: unknown priority %q", ErrOrderInvalidInput, trimmed)
		}
	}

	items := make([]domain.OrderItem, 0, len(cmd.Items))
	total := 0
	for i, item := range cmd.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return domain.Order{}, fmt.Errorf("%w: item %d requires a name", ErrOrderInvalidInput, i)
		}
		if item.Quantity <= 0 {
			return domain.Order{}, fmt.Errorf("%w: item %d requires a positive quantity", ErrOrderInvalidInput, i)
		}
		if item.ProcessingTime < 0 {
			return domain.Order{}, fmt.Errorf("%w: item %d has a negative processing time", ErrOrderInvalidInput, i)
		}
		items = append(items, domain.OrderItem{
			Name:           name,
			Quantity:       item.Quantity,
			Unit:           strings.TrimSpace(item.Unit),
			ProcessingTime: item.ProcessingTime,
		})
		total += item.ProcessingTime
	}

	now := s.clock()

	orderNumber := strings.TrimSpace(cmd.OrderNumber)
	if orderNumber == "" {
		orderNumber = s.generateOrderNumber(now)
	}

	deliveryDate := now
	if cmd.RequestedDeliveryDate != nil && !cmd.RequestedDeliveryDate.IsZero() {
		deliveryDate = cmd.RequestedDeliveryDate.UTC()
	}

	return domain.Order{
		ID:                    orderIDPrefix + s.newID(),
		OrderNumber:           orderNumber,
		ClientName:            clientName,
		RequestedDeliveryDate: deliveryDate,
		Priority:              priority,
		Status:                domain.OrderStatusPending,
		Items:                 items,
		Notes:                 s.sanitize(cmd.Notes),
		Progress:              0,
		TotalProcessingTime:   total,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// GetOrder loads a single order.
func (s *orderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

// ListOrders returns orders matching the query, newest first.
func (s *orderService) ListOrders(ctx context.Context, query OrderListQuery) (domain.CursorPage[domain.Order], error) {
	filter := repositories.OrderListFilter{
		Status:     query.Status,
		ClientName: strings.TrimSpace(query.ClientName),
		DateRange:  domain.RangeQuery[time.Time]{From: query.From, To: query.To},
		Pagination: query.Pagination,
	}

	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// TransitionStatus applies a guarded status change.
func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !domain.ValidOrderStatus(cmd.TargetStatus) {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.TargetStatus)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	order.ID = orderID

	if cmd.ExpectedStatus != nil && order.Status != *cmd.ExpectedStatus {
		return domain.Order{}, fmt.Errorf("%w: expected status %q but was %q", ErrOrderConflict, *cmd.ExpectedStatus, order.Status)
	}
	if !domain.CanTransition(order.Status, cmd.TargetStatus) {
		return domain.Order{}, fmt.Errorf("%w: %q -> %q", ErrOrderInvalidState, order.Status, cmd.TargetStatus)
	}

	if order.Status == cmd.TargetStatus {
		return order, nil
	}

	previous := order.Status
	order.Status = cmd.TargetStatus
	order.UpdatedAt = s.clock()

	if err := s.orders.Update(ctx, order); err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEventMessage{
		Type:        OrderEventStatusChanged,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		ClientName:  order.ClientName,
		Status:      string(order.Status),
		OccurredAt:  order.UpdatedAt,
	})

	s.logger(ctx, "order.status.changed", map[string]any{
		"orderId": order.ID,
		"from":    string(previous),
		"to":      string(order.Status),
	})

	return order, nil
}

// generateOrderNumber derives a human-readable number from the creation
// instant, e.g. ORD-MB3K2C9F.
func (s *orderService) generateOrderNumber(now time.Time) string {
	return orderNumberPrefix + strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
}

func (s *orderService) publishEvent(ctx context.Context, message OrderEventMessage) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, message); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":    message.Type,
			"orderId": message.OrderID,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

func applyLinkage(order *domain.Order, result ProvisionResult) {
	for variant, id := range result.IDs {
		id := id
		switch variant {
		case domain.VariantProduction:
			order.LinkedProductionLotID = &id
		case domain.VariantQualityShared:
			order.LinkedQualitySharedLotID = &id
		case domain.VariantQualityControl:
			order.LinkedQualityLotID = &id
		case domain.VariantWasteTracking:
			order.LinkedWasteTrackingLotID = &id
		case domain.VariantIntake:
			order.LinkedNewEntryLotID = &id
		}
	}
}
