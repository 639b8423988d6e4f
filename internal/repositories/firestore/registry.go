package firestore

import (
	"context"
	"errors"

	"google.golang.org/api/iterator"

	pfirestore "github.com/agrilot/api/internal/platform/firestore"
	"github.com/agrilot/api/internal/repositories"
)

// Registry wires every Firestore-backed repository behind the repositories.Registry contract.
type Registry struct {
	provider *pfirestore.Provider

	orders        *OrderRepository
	production    *ProductionLotRepository
	qualityShared *QualitySharedLotRepository
	quality       *QualityControlLotRepository
	waste         *WasteTrackingLotRepository
	intake        *IntakeLotRepository
	legacy        *LegacyQualityRecordRepository
	provisionLogs *ProvisionLogRepository
	health        repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs every repository against the shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	production, err := NewProductionLotRepository(provider)
	if err != nil {
		return nil, err
	}
	qualityShared, err := NewQualitySharedLotRepository(provider)
	if err != nil {
		return nil, err
	}
	quality, err := NewQualityControlLotRepository(provider)
	if err != nil {
		return nil, err
	}
	waste, err := NewWasteTrackingLotRepository(provider)
	if err != nil {
		return nil, err
	}
	intake, err := NewIntakeLotRepository(provider)
	if err != nil {
		return nil, err
	}
	legacy, err := NewLegacyQualityRecordRepository(provider)
	if err != nil {
		return nil, err
	}
	provisionLogs, err := NewProvisionLogRepository(provider)
	if err != nil {
		return nil, err
	}

	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{Name: "firestore", Check: pingFirestore(provider)},
	})
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:      provider,
		orders:        orders,
		production:    production,
		qualityShared: qualityShared,
		quality:       quality,
		waste:         waste,
		intake:        intake,
		legacy:        legacy,
		provisionLogs: provisionLogs,
		health:        health,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

func (r *Registry) Orders() repositories.OrderRepository                 { return r.orders }
func (r *Registry) ProductionLots() repositories.ProductionLotRepository { return r.production }
func (r *Registry) QualitySharedLots() repositories.QualitySharedLotRepository {
	return r.qualityShared
}
func (r *Registry) QualityControlLots() repositories.QualityControlLotRepository { return r.quality }
func (r *Registry) WasteTrackingLots() repositories.WasteTrackingLotRepository   { return r.waste }
func (r *Registry) IntakeLots() repositories.IntakeLotRepository                 { return r.intake }
func (r *Registry) LegacyQualityRecords() repositories.LegacyQualityRecordRepository {
	return r.legacy
}
func (r *Registry) ProvisionLogs() repositories.ProvisionLogRepository { return r.provisionLogs }
func (r *Registry) Health() repositories.HealthRepository              { return r.health }

// pingFirestore issues a cheap single-document read against the orders
// collection to confirm connectivity.
func pingFirestore(provider *pfirestore.Provider) func(context.Context) error {
	return func(ctx context.Context) error {
		client, err := provider.Client(ctx)
		if err != nil {
			return err
		}
		iter := client.Collection(orderCollection).Limit(1).Documents(ctx)
		defer iter.Stop()
		if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
			return err
		}
		return nil
	}
}
