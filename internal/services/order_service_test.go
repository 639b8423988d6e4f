package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	domain "github.com/agrilot/api/internal/domain"
)

var orderClock = func() time.Time {
	return time.Date(2025, time.September, 12, 7, 30, 0, 0, time.UTC)
}

func newOrderService(t *testing.T, orders *stubOrderRepo, provisioner ProvisioningService, events OrderEventPublisher) OrderService {
	t.Helper()

	if provisioner == nil {
		provisioner = &stubProvisioner{}
	}

	svc, err := NewOrderService(OrderServiceDeps{
		Orders:      orders,
		Provisioner: provisioner,
		Events:      events,
		Clock:       orderClock,
		IDGenerator: func() string { return "01TEST" },
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}
	return svc
}

func TestCreateOrderRejectsMissingClientName(t *testing.T) {
	svc := newOrderService(t, &stubOrderRepo{}, nil, nil)

	_, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		ClientName: "   ",
	})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}

func TestCreateOrderRejectsMalformedItems(t *testing.T) {
	svc := newOrderService(t, &stubOrderRepo{}, nil, nil)

	cases := []CreateOrderCommand{
		{ClientName: "ACME", Items: []OrderItemInput{{Name: "", Quantity: 10}}},
		{ClientName: "ACME", Items: []OrderItemInput{{Name: "Avocado", Quantity: 0}}},
		{ClientName: "ACME", Items: []OrderItemInput{{Name: "Avocado", Quantity: 5, ProcessingTime: -1}}},
	}
	for i, cmd := range cases {
		if _, err := svc.CreateOrder(context.Background(), cmd); !errors.Is(err, ErrOrderInvalidInput) {
			t.Fatalf("case %d: expected ErrOrderInvalidInput, got %v", i, err)
		}
	}
}

func TestCreateOrderRejectsUnknownPriority(t *testing.T) {
	svc := newOrderService(t, &stubOrderRepo{}, nil, nil)

	_, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		ClientName: "ACME",
		Priority:   "asap",
	})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}

func TestCreateOrderPersistsAndProvisions(t *testing.T) {
	orders := &stubOrderRepo{}
	events := &stubEventPublisher{}
	prodID := "prod-1"
	provisioner := &stubProvisioner{
		provisionFn: func(_ context.Context, order domain.Order) (ProvisionResult, error) {
			return ProvisionResult{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				IDs: map[domain.LotVariant]string{
					domain.VariantProduction:     prodID,
					domain.VariantQualityShared:  "shared-1",
					domain.VariantQualityControl: "qc-1",
					domain.VariantWasteTracking:  "waste-1",
					domain.VariantIntake:         "intake-1",
				},
				LinkbackDone: true,
			}, nil
		},
	}
	svc := newOrderService(t, orders, provisioner, events)

	order, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		ClientName: "ACME",
		Items: []OrderItemInput{
			{Name: "Hass Avocado", Quantity: 500, Unit: "kg", ProcessingTime: 120},
			{Name: "Fuerte Avocado", Quantity: 250, Unit: "kg", ProcessingTime: 60},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending status, got %s", order.Status)
	}
	if order.Progress != 0 {
		t.Fatalf("expected zero progress, got %d", order.Progress)
	}
	if order.TotalProcessingTime != 180 {
		t.Fatalf("expected summed processing time 180, got %d", order.TotalProcessingTime)
	}
	if !strings.HasPrefix(order.ID, "ord_") {
		t.Fatalf("unexpected order id %q", order.ID)
	}
	if !strings.HasPrefix(order.OrderNumber, "ORD-") {
		t.Fatalf("unexpected order number %q", order.OrderNumber)
	}
	if order.OrderNumber != strings.ToUpper(order.OrderNumber) {
		t.Fatalf("order number must be upper case, got %q", order.OrderNumber)
	}
	if !order.RequestedDeliveryDate.Equal(orderClock()) {
		t.Fatalf("delivery date must default to now, got %s", order.RequestedDeliveryDate)
	}

	if len(orders.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(orders.inserted))
	}
	if orders.inserted[0].LinkedProductionLotID != nil {
		t.Fatal("links must not be set before provisioning")
	}

	if order.LinkedProductionLotID == nil || *order.LinkedProductionLotID != prodID {
		t.Fatalf("expected production link on returned order, got %+v", order.LinkedProductionLotID)
	}
	if order.LinkedNewEntryLotID == nil || *order.LinkedNewEntryLotID != "intake-1" {
		t.Fatalf("expected intake link on returned order, got %+v", order.LinkedNewEntryLotID)
	}

	if len(events.published) != 1 || events.published[0].Type != OrderEventCreated {
		t.Fatalf("expected created event, got %+v", events.published)
	}
}

func TestCreateOrderSurvivesProvisioningFailure(t *testing.T) {
	orders := &stubOrderRepo{}
	provisioner := &stubProvisioner{
		provisionFn: func(context.Context, domain.Order) (ProvisionResult, error) {
			return ProvisionResult{}, errors.New("provisioning blew up")
		},
	}
	svc := newOrderService(t, orders, provisioner, nil)

	order, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		ClientName: "ACME",
	})
	if err != nil {
		t.Fatalf("order creation must succeed regardless of provisioning, got %v", err)
	}
	if order.ID == "" {
		t.Fatal("expected committed order")
	}
	if order.LinkedProductionLotID != nil {
		t.Fatal("no links expected after a failed pass")
	}
}

func TestCreateOrderPermitsEmptyItemList(t *testing.T) {
	svc := newOrderService(t, &stubOrderRepo{}, nil, nil)

	order, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		ClientName: "ACME",
	})
	if err != nil {
		t.Fatalf("empty item list must be permitted, got %v", err)
	}
	if order.TotalProcessingTime != 0 {
		t.Fatalf("expected zero processing time, got %d", order.TotalProcessingTime)
	}
}

func TestCreateOrderSanitizesNotes(t *testing.T) {
	orders := &stubOrderRepo{}
	svc := newOrderService(t, orders, nil, nil)

	order, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		ClientName: "ACME",
		Notes:      "  <b>chilled</b> transport required ",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Notes != "chilled transport required" {
		t.Fatalf("expected sanitized notes, got %q", order.Notes)
	}
}

func TestCreateOrderKeepsClientOrderNumber(t *testing.T) {
	orders := &stubOrderRepo{}
	svc := newOrderService(t, orders, nil, nil)

	order, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		OrderNumber: "  LOT-2025-ACME-7  ",
		ClientName:  "ACME",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.OrderNumber != "LOT-2025-ACME-7" {
		t.Fatalf("expected client supplied number kept, got %q", order.OrderNumber)
	}
	if len(orders.inserted) != 1 || orders.inserted[0].OrderNumber != "LOT-2025-ACME-7" {
		t.Fatalf("expected client supplied number persisted, got %+v", orders.inserted)
	}
}

func TestCreateOrderDerivesNumberWhenBlank(t *testing.T) {
	svc := newOrderService(t, &stubOrderRepo{}, nil, nil)

	order, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		OrderNumber: "   ",
		ClientName:  "ACME",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	want := "ORD-" + strings.ToUpper(strconv.FormatInt(orderClock().UnixMilli(), 36))
	if order.OrderNumber != want {
		t.Fatalf("expected derived number %q, got %q", want, order.OrderNumber)
	}
}

func TestCreateOrderSkipsLinkageWhenPatchFailed(t *testing.T) {
	orders := &stubOrderRepo{}
	provisioner := &stubProvisioner{
		provisionFn: func(_ context.Context, order domain.Order) (ProvisionResult, error) {
			return ProvisionResult{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				IDs: map[domain.LotVariant]string{
					domain.VariantProduction:     "prod-1",
					domain.VariantQualityShared:  "shared-1",
					domain.VariantQualityControl: "qc-1",
					domain.VariantWasteTracking:  "waste-1",
					domain.VariantIntake:         "intake-1",
				},
				LinkbackDone: false,
			}, nil
		},
	}
	svc := newOrderService(t, orders, provisioner, nil)

	order, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		ClientName: "ACME",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.LinkedProductionLotID != nil || order.LinkedNewEntryLotID != nil {
		t.Fatalf("returned order must not carry links the patch never persisted, got %+v", order)
	}
}

func TestCreateOrderUsesProvidedDeliveryDate(t *testing.T) {
	svc := newOrderService(t, &stubOrderRepo{}, nil, nil)

	requested := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)
	order, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		ClientName:            "ACME",
		RequestedDeliveryDate: &requested,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !order.RequestedDeliveryDate.Equal(requested) {
		t.Fatalf("expected requested date kept, got %s", order.RequestedDeliveryDate)
	}
}

func TestGetOrderMapsNotFound(t *testing.T) {
	orders := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{}, notFoundError{}
		},
	}
	svc := newOrderService(t, orders, nil, nil)

	_, err := svc.GetOrder(context.Background(), "ord_missing")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestTransitionStatusAppliesGuardedChange(t *testing.T) {
	stored := domain.Order{
		OrderNumber: "ORD-MB3K2C9F",
		ClientName:  "ACME",
		Status:      domain.OrderStatusPending,
	}
	var updated *domain.Order
	orders := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return stored, nil
		},
		updateFn: func(_ context.Context, order domain.Order) error {
			updated = &order
			return nil
		},
	}
	events := &stubEventPublisher{}
	svc := newOrderService(t, orders, nil, events)

	order, err := svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID:      "ord_01TEST",
		TargetStatus: domain.OrderStatusProcessing,
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if order.Status != domain.OrderStatusProcessing {
		t.Fatalf("expected processing, got %s", order.Status)
	}
	if updated == nil || updated.Status != domain.OrderStatusProcessing {
		t.Fatal("expected repository update with new status")
	}
	if len(events.published) != 1 || events.published[0].Type != OrderEventStatusChanged {
		t.Fatalf("expected status change event, got %+v", events.published)
	}
}

func TestTransitionStatusRejectsIllegalMove(t *testing.T) {
	orders := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{Status: domain.OrderStatusDelivered}, nil
		},
	}
	svc := newOrderService(t, orders, nil, nil)

	_, err := svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID:      "ord_01TEST",
		TargetStatus: domain.OrderStatusPending,
	})
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected ErrOrderInvalidState, got %v", err)
	}
}

func TestTransitionStatusHonoursExpectedStatus(t *testing.T) {
	orders := &stubOrderRepo{
		findFn: func(context.Context, string) (domain.Order, error) {
			return domain.Order{Status: domain.OrderStatusProcessing}, nil
		},
	}
	svc := newOrderService(t, orders, nil, nil)

	expected := domain.OrderStatusPending
	_, err := svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID:        "ord_01TEST",
		TargetStatus:   domain.OrderStatusShipped,
		ExpectedStatus: &expected,
	})
	if !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("expected ErrOrderConflict, got %v", err)
	}
}
