package repositories

import (
	"context"
	"time"

	domain "github.com/agrilot/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	ProductionLots() ProductionLotRepository
	QualitySharedLots() QualitySharedLotRepository
	QualityControlLots() QualityControlLotRepository
	WasteTrackingLots() WasteTrackingLotRepository
	IntakeLots() IntakeLotRepository
	LegacyQualityRecords() LegacyQualityRecordRepository
	ProvisionLogs() ProvisionLogRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// OrderRepository persists order headers and supports the partial linkage patch
// applied after a provisioning pass.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	// PatchLinkage updates only the provided linkage fields, leaving the rest
	// of the order document untouched.
	PatchLinkage(ctx context.Context, orderID string, links OrderLinkagePatch, updatedAt time.Time) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// OrderLinkagePatch carries the lot identifiers to write back onto an order.
// Nil fields are skipped so a retry can patch a single missing link.
type OrderLinkagePatch struct {
	ProductionLotID    *string
	QualitySharedLotID *string
	QualityLotID       *string
	WasteTrackingLotID *string
	NewEntryLotID      *string
}

// Empty reports whether the patch carries no identifiers at all.
func (p OrderLinkagePatch) Empty() bool {
	return p.ProductionLotID == nil &&
		p.QualitySharedLotID == nil &&
		p.QualityLotID == nil &&
		p.WasteTrackingLotID == nil &&
		p.NewEntryLotID == nil
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	Status     []domain.OrderStatus
	ClientName string
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}

// ProductionLotRepository stores packing-floor production sheets.
type ProductionLotRepository interface {
	Create(ctx context.Context, lot domain.ProductionLot) (string, error)
	FindByID(ctx context.Context, lotID string) (domain.ProductionLot, error)
}

// QualitySharedLotRepository stores the shared quality header records.
type QualitySharedLotRepository interface {
	Create(ctx context.Context, lot domain.QualitySharedLot) (string, error)
	FindByID(ctx context.Context, lotID string) (domain.QualitySharedLot, error)
}

// QualityControlLotRepository stores the standalone quality-control forms.
type QualityControlLotRepository interface {
	Create(ctx context.Context, lot domain.QualityControlLot) (string, error)
	FindByID(ctx context.Context, lotID string) (domain.QualityControlLot, error)
}

// WasteTrackingLotRepository stores waste declaration sheets.
type WasteTrackingLotRepository interface {
	Create(ctx context.Context, lot domain.WasteTrackingLot) (string, error)
	FindByID(ctx context.Context, lotID string) (domain.WasteTrackingLot, error)
}

// IntakeLotRepository stores reception-flow records.
type IntakeLotRepository interface {
	Create(ctx context.Context, lot domain.IntakeLot) (string, error)
	FindByID(ctx context.Context, lotID string) (domain.IntakeLot, error)
}

// LegacyQualityRecordRepository stores the minimal fallback records written
// when a provisioning pass fails.
type LegacyQualityRecordRepository interface {
	Create(ctx context.Context, record domain.LegacyQualityRecord) (string, error)
	ListByLotNumber(ctx context.Context, lotNumber string) ([]domain.LegacyQualityRecord, error)
}

// ProvisionLogRepository persists the per-order provisioning step log keyed by order ID.
type ProvisionLogRepository interface {
	Save(ctx context.Context, log domain.ProvisionLog) error
	FindByOrderID(ctx context.Context, orderID string) (domain.ProvisionLog, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
