package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/agrilot/api/internal/domain"
	pfirestore "github.com/agrilot/api/internal/platform/firestore"
)

const qualitySharedLotCollection = "qualitySharedLots"

// QualitySharedLotRepository stores the shared quality header records in Firestore.
type QualitySharedLotRepository struct {
	base     *pfirestore.BaseRepository[qualitySharedLotDocument]
	provider *pfirestore.Provider
}

// NewQualitySharedLotRepository constructs a Firestore-backed shared quality lot repository.
func NewQualitySharedLotRepository(provider *pfirestore.Provider) (*QualitySharedLotRepository, error) {
	if provider == nil {
		return nil, errors.New("quality shared lot repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[qualitySharedLotDocument](provider, qualitySharedLotCollection, nil, nil)
	return &QualitySharedLotRepository{base: base, provider: provider}, nil
}

// Create writes the lot under a store-assigned document ID and returns that ID.
func (r *QualitySharedLotRepository) Create(ctx context.Context, lot domain.QualitySharedLot) (string, error) {
	if r == nil || r.base == nil {
		return "", errors.New("quality shared lot repository not initialised")
	}
	return createWithGeneratedID(ctx, r.provider, r.base, qualitySharedLotCollection, fromDomainQualitySharedLot(lot))
}

// FindByID loads a single shared quality lot.
func (r *QualitySharedLotRepository) FindByID(ctx context.Context, lotID string) (domain.QualitySharedLot, error) {
	if r == nil || r.base == nil {
		return domain.QualitySharedLot{}, errors.New("quality shared lot repository not initialised")
	}
	if strings.TrimSpace(lotID) == "" {
		return domain.QualitySharedLot{}, errors.New("lot id is required")
	}

	doc, err := r.base.Get(ctx, lotID)
	if err != nil {
		return domain.QualitySharedLot{}, err
	}

	lot := toDomainQualitySharedLot(doc.Data)
	lot.ID = doc.ID
	return lot, nil
}

type qualitySharedLotDocument struct {
	LotNumber string            `firestore:"lotNumber"`
	Type      string            `firestore:"type"`
	Status    string            `firestore:"status"`
	Header    lotHeaderDocument `firestore:"header"`
	CreatedAt time.Time         `firestore:"createdAt"`
	UpdatedAt time.Time         `firestore:"updatedAt"`
}

func fromDomainQualitySharedLot(lot domain.QualitySharedLot) qualitySharedLotDocument {
	return qualitySharedLotDocument{
		LotNumber: strings.TrimSpace(lot.LotNumber),
		Type:      lot.Type,
		Status:    lot.Status,
		Header:    fromDomainLotHeader(lot.Header),
		CreatedAt: lot.CreatedAt.UTC(),
		UpdatedAt: lot.UpdatedAt.UTC(),
	}
}

func toDomainQualitySharedLot(doc qualitySharedLotDocument) domain.QualitySharedLot {
	return domain.QualitySharedLot{
		LotNumber: doc.LotNumber,
		Type:      doc.Type,
		Status:    doc.Status,
		Header:    toDomainLotHeader(doc.Header),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}
