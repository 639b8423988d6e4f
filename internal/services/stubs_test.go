package services

import (
	"context"
	"errors"
	"sync"
	"time"

	domain "github.com/agrilot/api/internal/domain"
	"github.com/agrilot/api/internal/repositories"
)

type stubOrderRepo struct {
	mu       sync.Mutex
	insertFn func(context.Context, domain.Order) error
	updateFn func(context.Context, domain.Order) error
	patchFn  func(context.Context, string, repositories.OrderLinkagePatch, time.Time) error
	findFn   func(context.Context, string) (domain.Order, error)
	listFn   func(context.Context, repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
	inserted []domain.Order
	patches  []repositories.OrderLinkagePatch
}

func (s *stubOrderRepo) Insert(ctx context.Context, order domain.Order) error {
	s.mu.Lock()
	s.inserted = append(s.inserted, order)
	s.mu.Unlock()
	if s.insertFn != nil {
		return s.insertFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) Update(ctx context.Context, order domain.Order) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) PatchLinkage(ctx context.Context, orderID string, links repositories.OrderLinkagePatch, updatedAt time.Time) error {
	s.mu.Lock()
	s.patches = append(s.patches, links)
	s.mu.Unlock()
	if s.patchFn != nil {
		return s.patchFn(ctx, orderID, links, updatedAt)
	}
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

type stubProductionLotRepo struct {
	mu       sync.Mutex
	createFn func(context.Context, domain.ProductionLot) (string, error)
	created  []domain.ProductionLot
}

func (s *stubProductionLotRepo) Create(ctx context.Context, lot domain.ProductionLot) (string, error) {
	s.mu.Lock()
	s.created = append(s.created, lot)
	s.mu.Unlock()
	if s.createFn != nil {
		return s.createFn(ctx, lot)
	}
	return "prod-1", nil
}

func (s *stubProductionLotRepo) FindByID(context.Context, string) (domain.ProductionLot, error) {
	return domain.ProductionLot{}, errors.New("not implemented")
}

type stubQualitySharedLotRepo struct {
	mu       sync.Mutex
	createFn func(context.Context, domain.QualitySharedLot) (string, error)
	created  []domain.QualitySharedLot
}

func (s *stubQualitySharedLotRepo) Create(ctx context.Context, lot domain.QualitySharedLot) (string, error) {
	s.mu.Lock()
	s.created = append(s.created, lot)
	s.mu.Unlock()
	if s.createFn != nil {
		return s.createFn(ctx, lot)
	}
	return "shared-1", nil
}

func (s *stubQualitySharedLotRepo) FindByID(context.Context, string) (domain.QualitySharedLot, error) {
	return domain.QualitySharedLot{}, errors.New("not implemented")
}

type stubQualityControlLotRepo struct {
	mu       sync.Mutex
	createFn func(context.Context, domain.QualityControlLot) (string, error)
	created  []domain.QualityControlLot
}

func (s *stubQualityControlLotRepo) Create(ctx context.Context, lot domain.QualityControlLot) (string, error) {
	s.mu.Lock()
	s.created = append(s.created, lot)
	s.mu.Unlock()
	if s.createFn != nil {
		return s.createFn(ctx, lot)
	}
	return "qc-1", nil
}

func (s *stubQualityControlLotRepo) FindByID(context.Context, string) (domain.QualityControlLot, error) {
	return domain.QualityControlLot{}, errors.New("not implemented")
}

type stubWasteTrackingLotRepo struct {
	mu       sync.Mutex
	createFn func(context.Context, domain.WasteTrackingLot) (string, error)
	created  []domain.WasteTrackingLot
}

func (s *stubWasteTrackingLotRepo) Create(ctx context.Context, lot domain.WasteTrackingLot) (string, error) {
	s.mu.Lock()
	s.created = append(s.created, lot)
	s.mu.Unlock()
	if s.createFn != nil {
		return s.createFn(ctx, lot)
	}
	return "waste-1", nil
}

func (s *stubWasteTrackingLotRepo) FindByID(context.Context, string) (domain.WasteTrackingLot, error) {
	return domain.WasteTrackingLot{}, errors.New("not implemented")
}

type stubIntakeLotRepo struct {
	mu       sync.Mutex
	createFn func(context.Context, domain.IntakeLot) (string, error)
	created  []domain.IntakeLot
}

func (s *stubIntakeLotRepo) Create(ctx context.Context, lot domain.IntakeLot) (string, error) {
	s.mu.Lock()
	s.created = append(s.created, lot)
	s.mu.Unlock()
	if s.createFn != nil {
		return s.createFn(ctx, lot)
	}
	return "intake-1", nil
}

func (s *stubIntakeLotRepo) FindByID(context.Context, string) (domain.IntakeLot, error) {
	return domain.IntakeLot{}, errors.New("not implemented")
}

type stubLegacyRepo struct {
	mu       sync.Mutex
	createFn func(context.Context, domain.LegacyQualityRecord) (string, error)
	created  []domain.LegacyQualityRecord
}

func (s *stubLegacyRepo) Create(ctx context.Context, record domain.LegacyQualityRecord) (string, error) {
	s.mu.Lock()
	s.created = append(s.created, record)
	s.mu.Unlock()
	if s.createFn != nil {
		return s.createFn(ctx, record)
	}
	return "legacy-1", nil
}

func (s *stubLegacyRepo) ListByLotNumber(context.Context, string) ([]domain.LegacyQualityRecord, error) {
	return nil, errors.New("not implemented")
}

type stubProvisionLogRepo struct {
	mu     sync.Mutex
	saveFn func(context.Context, domain.ProvisionLog) error
	logs   map[string]domain.ProvisionLog
}

func (s *stubProvisionLogRepo) Save(ctx context.Context, log domain.ProvisionLog) error {
	if s.saveFn != nil {
		if err := s.saveFn(ctx, log); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logs == nil {
		s.logs = make(map[string]domain.ProvisionLog)
	}
	s.logs[log.OrderID] = log
	return nil
}

func (s *stubProvisionLogRepo) FindByOrderID(ctx context.Context, orderID string) (domain.ProvisionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.logs[orderID]
	if !ok {
		return domain.ProvisionLog{}, notFoundError{}
	}
	return log, nil
}

type stubEventPublisher struct {
	mu        sync.Mutex
	publishFn func(context.Context, OrderEventMessage) (string, error)
	published []OrderEventMessage
}

func (s *stubEventPublisher) PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error) {
	s.mu.Lock()
	s.published = append(s.published, message)
	s.mu.Unlock()
	if s.publishFn != nil {
		return s.publishFn(ctx, message)
	}
	return "msg-1", nil
}

type stubProvisioner struct {
	provisionFn func(context.Context, domain.Order) (ProvisionResult, error)
	retryFn     func(context.Context, string) (ProvisionResult, error)
}

func (s *stubProvisioner) Provision(ctx context.Context, order domain.Order) (ProvisionResult, error) {
	if s.provisionFn != nil {
		return s.provisionFn(ctx, order)
	}
	return ProvisionResult{OrderID: order.ID, OrderNumber: order.OrderNumber}, nil
}

func (s *stubProvisioner) Retry(ctx context.Context, orderID string) (ProvisionResult, error) {
	if s.retryFn != nil {
		return s.retryFn(ctx, orderID)
	}
	return ProvisionResult{}, errors.New("not implemented")
}

func (s *stubProvisioner) Status(context.Context, string) (domain.ProvisionLog, error) {
	return domain.ProvisionLog{}, errors.New("not implemented")
}

// notFoundError satisfies repositories.RepositoryError for stubbed lookups.
type notFoundError struct{}

func (notFoundError) Error() string       { return "not found" }
func (notFoundError) IsNotFound() bool    { return true }
func (notFoundError) IsConflict() bool    { return false }
func (notFoundError) IsUnavailable() bool { return false }
