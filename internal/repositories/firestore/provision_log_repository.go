package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/agrilot/api/internal/domain"
	pfirestore "github.com/agrilot/api/internal/platform/firestore"
)

const provisionLogCollection = "provisionLogs"

// ProvisionLogRepository persists the per-order provisioning step log. The
// document ID is the order ID so a pass and its retries share one record.
type ProvisionLogRepository struct {
	base *pfirestore.BaseRepository[provisionLogDocument]
}

// NewProvisionLogRepository constructs a Firestore-backed provision log repository.
func NewProvisionLogRepository(provider *pfirestore.Provider) (*ProvisionLogRepository, error) {
	if provider == nil {
		return nil, errors.New("provision log repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[provisionLogDocument](provider, provisionLogCollection, nil, nil)
	return &ProvisionLogRepository{base: base}, nil
}

// Save upserts the log keyed by its order ID.
func (r *ProvisionLogRepository) Save(ctx context.Context, log domain.ProvisionLog) error {
	if r == nil || r.base == nil {
		return errors.New("provision log repository not initialised")
	}
	if strings.TrimSpace(log.OrderID) == "" {
		return errors.New("provision log order id is required")
	}

	_, err := r.base.Set(ctx, log.OrderID, fromDomainProvisionLog(log))
	return err
}

// FindByOrderID loads the provisioning log for an order.
func (r *ProvisionLogRepository) FindByOrderID(ctx context.Context, orderID string) (domain.ProvisionLog, error) {
	if r == nil || r.base == nil {
		return domain.ProvisionLog{}, errors.New("provision log repository not initialised")
	}
	if strings.TrimSpace(orderID) == "" {
		return domain.ProvisionLog{}, errors.New("order id is required")
	}

	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.ProvisionLog{}, err
	}

	log := toDomainProvisionLog(doc.Data)
	log.OrderID = doc.ID
	return log, nil
}

type provisionLogDocument struct {
	OrderNumber  string                  `firestore:"orderNumber"`
	Steps        []provisionStepDocument `firestore:"steps"`
	LinkbackDone bool                    `firestore:"linkbackDone"`
	FallbackDone bool                    `firestore:"fallbackDone"`
	Attempts     int                     `firestore:"attempts"`
	LastError    string                  `firestore:"lastError"`
	CreatedAt    time.Time               `firestore:"createdAt"`
	UpdatedAt    time.Time               `firestore:"updatedAt"`
}

type provisionStepDocument struct {
	Variant  string `firestore:"variant"`
	Status   string `firestore:"status"`
	ResultID string `firestore:"resultId"`
	Error    string `firestore:"error"`
}

func fromDomainProvisionLog(log domain.ProvisionLog) provisionLogDocument {
	doc := provisionLogDocument{
		OrderNumber:  log.OrderNumber,
		LinkbackDone: log.LinkbackDone,
		FallbackDone: log.FallbackDone,
		Attempts:     log.Attempts,
		LastError:    log.LastError,
		CreatedAt:    log.CreatedAt.UTC(),
		UpdatedAt:    log.UpdatedAt.UTC(),
	}
	for _, step := range log.Steps {
		doc.Steps = append(doc.Steps, provisionStepDocument{
			Variant:  string(step.Variant),
			Status:   string(step.Status),
			ResultID: step.ResultID,
			Error:    step.Error,
		})
	}
	return doc
}

func toDomainProvisionLog(doc provisionLogDocument) domain.ProvisionLog {
	log := domain.ProvisionLog{
		OrderNumber:  doc.OrderNumber,
		LinkbackDone: doc.LinkbackDone,
		FallbackDone: doc.FallbackDone,
		Attempts:     doc.Attempts,
		LastError:    doc.LastError,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
	for _, step := range doc.Steps {
		log.Steps = append(log.Steps, domain.ProvisionStep{
			Variant:  domain.LotVariant(step.Variant),
			Status:   domain.ProvisionStepStatus(step.Status),
			ResultID: step.ResultID,
			Error:    step.Error,
		})
	}
	return log
}
