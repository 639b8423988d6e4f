package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/agrilot/api/internal/domain"
	"github.com/agrilot/api/internal/repositories"
)

const defaultStepTimeout = 10 * time.Second

var (
	// ErrProvisionInvalidInput signals the caller provided invalid data.
	ErrProvisionInvalidInput = errors.New("provisioning: invalid input")
	// ErrProvisionNotFound indicates no provisioning log exists for the order.
	ErrProvisionNotFound = errors.New("provisioning: not found")
)

// ProvisioningServiceDeps bundles collaborators required to construct the provisioning service.
type ProvisioningServiceDeps struct {
	Orders             repositories.OrderRepository
	ProductionLots     repositories.ProductionLotRepository
	QualitySharedLots  repositories.QualitySharedLotRepository
	QualityControlLots repositories.QualityControlLotRepository
	WasteTrackingLots  repositories.WasteTrackingLotRepository
	IntakeLots         repositories.IntakeLotRepository
	LegacyRecords      repositories.LegacyQualityRecordRepository
	ProvisionLogs      repositories.ProvisionLogRepository
	Events             OrderEventPublisher
	Clock              func() time.Time
	StepTimeout        time.Duration
	Logger             func(ctx context.Context, event string, fields map[string]any)
}

type provisioningService struct {
	orders        repositories.OrderRepository
	production    repositories.ProductionLotRepository
	qualityShared repositories.QualitySharedLotRepository
	quality       repositories.QualityControlLotRepository
	waste         repositories.WasteTrackingLotRepository
	intake        repositories.IntakeLotRepository
	legacy        repositories.LegacyQualityRecordRepository
	logs          repositories.ProvisionLogRepository
	events        OrderEventPublisher
	clock         func() time.Time
	stepTimeout   time.Duration
	logger        func(context.Context, string, map[string]any)
}

// NewProvisioningService wires dependencies into a concrete ProvisioningService implementation.
func NewProvisioningService(deps ProvisioningServiceDeps) (ProvisioningService, error) {
	if deps.Orders == nil {
		return nil, errors.New("provisioning service: order repository is required")
	}
	if deps.ProductionLots == nil || deps.QualitySharedLots == nil || deps.QualityControlLots == nil ||
		deps.WasteTrackingLots == nil || deps.IntakeLots == nil {
		return nil, errors.New("provisioning service: all five lot repositories are required")
	}
	if deps.LegacyRecords == nil {
		return nil, errors.New("provisioning service: legacy record repository is required")
	}
	if deps.ProvisionLogs == nil {
		return nil, errors.New("provisioning service: provision log repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	stepTimeout := deps.StepTimeout
	if stepTimeout <= 0 {
		stepTimeout = defaultStepTimeout
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &provisioningService{
		orders:        deps.Orders,
		production:    deps.ProductionLots,
		qualityShared: deps.QualitySharedLots,
		quality:       deps.QualityControlLots,
		waste:         deps.WasteTrackingLots,
		intake:        deps.IntakeLots,
		legacy:        deps.LegacyRecords,
		logs:          deps.ProvisionLogs,
		events:        deps.Events,
		clock: func() time.Time {
			return clock().UTC()
		},
		stepTimeout: stepTimeout,
		logger:      logger,
	}, nil
}

// Provision runs the full five-writer pass for the order. Writers run
// concurrently, the linkback patch joins on all of them, and a legacy fallback
// record is written when any writer failed. Already-written records are never
// rolled back. A second call for the same order runs all five writers again
// and duplicates the records; only Retry is step-aware.
func (s *provisioningService) Provision(ctx context.Context, order domain.Order) (ProvisionResult, error) {
	if strings.TrimSpace(order.ID) == "" {
		return ProvisionResult{}, fmt.Errorf("%w: order id is required", ErrProvisionInvalidInput)
	}
	if strings.TrimSpace(order.OrderNumber) == "" {
		return ProvisionResult{}, fmt.Errorf("%w: order number is required", ErrProvisionInvalidInput)
	}

	now := s.clock()
	result := ProvisionResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
	}
	result.IDs, result.Errors = s.runWriters(ctx, order, domain.LotVariants, now)

	result.LinkbackDone = s.linkback(ctx, order.ID, result.IDs)

	log := s.loadOrNewLog(ctx, order, now)
	mergeSteps(&log, result)
	log.LinkbackDone = result.LinkbackDone
	log.Attempts++
	log.LastError = firstError(result.Errors)
	log.UpdatedAt = now

	if len(result.Errors) > 0 {
		result.FallbackDone = s.recordFallback(ctx, order, now)
		log.FallbackDone = log.FallbackDone || result.FallbackDone
		s.logger(ctx, "provisioning.pass.failed", map[string]any{
			"orderId":     order.ID,
			"orderNumber": order.OrderNumber,
			"failed":      variantNames(result.Errors),
		})
	}

	s.saveLog(ctx, log)

	if result.Complete() {
		s.publishProvisioned(ctx, order, now)
	}

	return result, nil
}

// Retry re-runs only the steps the persisted log marks as failed, then patches
// the newly obtained identifiers onto the order.
func (s *provisioningService) Retry(ctx context.Context, orderID string) (ProvisionResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return ProvisionResult{}, fmt.Errorf("%w: order id is required", ErrProvisionInvalidInput)
	}

	log, err := s.logs.FindByOrderID(ctx, orderID)
	if err != nil {
		return ProvisionResult{}, s.mapRepositoryError(err)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return ProvisionResult{}, s.mapRepositoryError(err)
	}
	order.ID = orderID

	now := s.clock()
	result := ProvisionResult{
		OrderID:     orderID,
		OrderNumber: order.OrderNumber,
		IDs:         make(map[domain.LotVariant]string),
		Errors:      make(map[domain.LotVariant]error),
	}
	for _, step := range log.Steps {
		if step.Status == domain.ProvisionStepSucceeded {
			result.IDs[step.Variant] = step.ResultID
		}
	}

	pending := log.FailedVariants()
	if len(pending) > 0 {
		ids, errs := s.runWriters(ctx, order, pending, now)
		for variant, id := range ids {
			result.IDs[variant] = id
		}
		result.Errors = errs

		result.LinkbackDone = s.linkback(ctx, orderID, ids)
	} else {
		result.LinkbackDone = log.LinkbackDone
		if !log.LinkbackDone {
			result.LinkbackDone = s.linkback(ctx, orderID, result.IDs)
		}
	}

	mergeSteps(&log, result)
	log.LinkbackDone = log.LinkbackDone || result.LinkbackDone
	log.Attempts++
	log.LastError = firstError(result.Errors)
	log.UpdatedAt = now
	s.saveLog(ctx, log)

	result.FallbackDone = log.FallbackDone

	if result.Complete() {
		s.publishProvisioned(ctx, order, now)
	}

	return result, nil
}

// Status returns the persisted provisioning log for the order.
func (s *provisioningService) Status(ctx context.Context, orderID string) (domain.ProvisionLog, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.ProvisionLog{}, fmt.Errorf("%w: order id is required", ErrProvisionInvalidInput)
	}

	log, err := s.logs.FindByOrderID(ctx, orderID)
	if err != nil {
		return domain.ProvisionLog{}, s.mapRepositoryError(err)
	}
	log.OrderID = orderID
	return log, nil
}

// runWriters issues the requested record writers concurrently, each under its
// own timeout, and joins on all of them.
func (s *provisioningService) runWriters(ctx context.Context, order domain.Order, variants []domain.LotVariant, now time.Time) (map[domain.LotVariant]string, map[domain.LotVariant]error) {
	ids := make(map[domain.LotVariant]string)
	errs := make(map[domain.LotVariant]error)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	wg.Add(len(variants))
	for _, variant := range variants {
		go func(variant domain.LotVariant) {
			defer wg.Done()

			stepCtx, cancel := context.WithTimeout(ctx, s.stepTimeout)
			defer cancel()

			id, err := s.writeRecord(stepCtx, order, variant, now)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[variant] = err
				return
			}
			ids[variant] = id
		}(variant)
	}
	wg.Wait()

	return ids, errs
}

func (s *provisioningService) writeRecord(ctx context.Context, order domain.Order, variant domain.LotVariant, now time.Time) (string, error) {
	switch variant {
	case domain.VariantProduction:
		return s.production.Create(ctx, buildProductionLot(order, now))
	case domain.VariantQualityShared:
		return s.qualityShared.Create(ctx, buildQualitySharedLot(order, now))
	case domain.VariantQualityControl:
		return s.quality.Create(ctx, buildQualityControlLot(order, now))
	case domain.VariantWasteTracking:
		return s.waste.Create(ctx, buildWasteTrackingLot(order, now))
	case domain.VariantIntake:
		return s.intake.Create(ctx, buildIntakeLot(order, now))
	default:
		return "", fmt.Errorf("%w: unknown lot variant %q", ErrProvisionInvalidInput, variant)
	}
}

// linkback patches the obtained identifiers onto the order. A failed patch is
// retried once immediately; after that the miss is only recorded on the log.
func (s *provisioningService) linkback(ctx context.Context, orderID string, ids map[domain.LotVariant]string) bool {
	patch := linkagePatch(ids)
	if patch.Empty() {
		return false
	}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if err = s.orders.PatchLinkage(ctx, orderID, patch, s.clock()); err == nil {
			return true
		}
	}

	s.logger(ctx, "provisioning.linkback.failed", map[string]any{
		"orderId": orderID,
		"error":   err.Error(),
	})
	return false
}

// recordFallback writes the out-of-band legacy record. Its own failure is
// logged and swallowed, never raised to the caller.
func (s *provisioningService) recordFallback(ctx context.Context, order domain.Order, now time.Time) bool {
	if _, err := s.legacy.Create(ctx, buildFallbackRecord(order, now)); err != nil {
		s.logger(ctx, "provisioning.fallback.failed", map[string]any{
			"orderId":     order.ID,
			"orderNumber": order.OrderNumber,
			"error":       err.Error(),
		})
		return false
	}
	return true
}

func (s *provisioningService) loadOrNewLog(ctx context.Context, order domain.Order, now time.Time) domain.ProvisionLog {
	log, err := s.logs.FindByOrderID(ctx, order.ID)
	if err != nil {
		return domain.ProvisionLog{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	log.OrderID = order.ID
	return log
}

func (s *provisioningService) saveLog(ctx context.Context, log domain.ProvisionLog) {
	if err := s.logs.Save(ctx, log); err != nil {
		s.logger(ctx, "provisioning.log.save.failed", map[string]any{
			"orderId": log.OrderID,
			"error":   err.Error(),
		})
	}
}

func (s *provisioningService) publishProvisioned(ctx context.Context, order domain.Order, now time.Time) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, OrderEventMessage{
		Type:        OrderEventProvisioned,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		ClientName:  order.ClientName,
		OccurredAt:  now,
	}); err != nil {
		s.logger(ctx, "provisioning.event.publish.failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

func (s *provisioningService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrProvisionNotFound, err)
	}
	return err
}

// mergeSteps folds the pass outcome into the persisted step log, keeping one
// entry per variant across attempts.
func mergeSteps(log *domain.ProvisionLog, result ProvisionResult) {
	for _, variant := range domain.LotVariants {
		id, hasID := result.IDs[variant]
		stepErr, hasErr := result.Errors[variant]
		if !hasID && !hasErr {
			continue
		}

		step := domain.ProvisionStep{Variant: variant}
		if hasID {
			step.Status = domain.ProvisionStepSucceeded
			step.ResultID = id
		} else {
			step.Status = domain.ProvisionStepFailed
			step.Error = stepErr.Error()
		}

		replaced := false
		for i := range log.Steps {
			if log.Steps[i].Variant == variant {
				log.Steps[i] = step
				replaced = true
				break
			}
		}
		if !replaced {
			log.Steps = append(log.Steps, step)
		}
	}
}

func linkagePatch(ids map[domain.LotVariant]string) repositories.OrderLinkagePatch {
	patch := repositories.OrderLinkagePatch{}
	for variant, id := range ids {
		id := id
		switch variant {
		case domain.VariantProduction:
			patch.ProductionLotID = &id
		case domain.VariantQualityShared:
			patch.QualitySharedLotID = &id
		case domain.VariantQualityControl:
			patch.QualityLotID = &id
		case domain.VariantWasteTracking:
			patch.WasteTrackingLotID = &id
		case domain.VariantIntake:
			patch.NewEntryLotID = &id
		}
	}
	return patch
}

func firstError(errs map[domain.LotVariant]error) string {
	for _, variant := range domain.LotVariants {
		if err, ok := errs[variant]; ok {
			return fmt.Sprintf("%s: %v", variant, err)
		}
	}
	return ""
}

func variantNames(errs map[domain.LotVariant]error) []string {
	var names []string
	for _, variant := range domain.LotVariants {
		if _, ok := errs[variant]; ok {
			names = append(names, string(variant))
		}
	}
	return names
}
