package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	domain "github.com/agrilot/api/internal/domain"
	pfirestore "github.com/agrilot/api/internal/platform/firestore"
)

const legacyQualityCollection = "legacyQualityRecords"

// LegacyQualityRecordRepository stores fallback quality records written when a
// provisioning pass could not complete.
type LegacyQualityRecordRepository struct {
	base     *pfirestore.BaseRepository[legacyQualityDocument]
	provider *pfirestore.Provider
}

// NewLegacyQualityRecordRepository constructs the fallback record repository.
func NewLegacyQualityRecordRepository(provider *pfirestore.Provider) (*LegacyQualityRecordRepository, error) {
	if provider == nil {
		return nil, errors.New("legacy quality repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[legacyQualityDocument](provider, legacyQualityCollection, nil, nil)
	return &LegacyQualityRecordRepository{base: base, provider: provider}, nil
}

// Create writes the fallback record under a store-assigned document ID.
func (r *LegacyQualityRecordRepository) Create(ctx context.Context, record domain.LegacyQualityRecord) (string, error) {
	if r == nil || r.base == nil {
		return "", errors.New("legacy quality repository not initialised")
	}
	return createWithGeneratedID(ctx, r.provider, r.base, legacyQualityCollection, fromDomainLegacyRecord(record))
}

// ListByLotNumber returns every fallback record written for a lot number,
// oldest first.
func (r *LegacyQualityRecordRepository) ListByLotNumber(ctx context.Context, lotNumber string) ([]domain.LegacyQualityRecord, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("legacy quality repository not initialised")
	}
	if strings.TrimSpace(lotNumber) == "" {
		return nil, errors.New("lot number is required")
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.
			Where("lotNumber", "==", strings.TrimSpace(lotNumber)).
			OrderBy("createdAt", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	records := make([]domain.LegacyQualityRecord, 0, len(docs))
	for _, doc := range docs {
		record := toDomainLegacyRecord(doc.Data)
		record.ID = doc.ID
		records = append(records, record)
	}
	return records, nil
}

type legacyQualityDocument struct {
	LotNumber        string                     `firestore:"lotNumber"`
	Form             qualityControlFormDocument `firestore:"form"`
	Palettes         []paletteSlotDocument      `firestore:"palettes"`
	SyncedToFirebase bool                       `firestore:"syncedToFirebase"`
	CreatedAt        time.Time                  `firestore:"createdAt"`
}

func fromDomainLegacyRecord(record domain.LegacyQualityRecord) legacyQualityDocument {
	return legacyQualityDocument{
		LotNumber:        strings.TrimSpace(record.LotNumber),
		Form:             fromDomainQualityControlForm(record.Form),
		Palettes:         fromDomainPalettes(record.Palettes),
		SyncedToFirebase: record.SyncedToFirebase,
		CreatedAt:        record.CreatedAt.UTC(),
	}
}

func toDomainLegacyRecord(doc legacyQualityDocument) domain.LegacyQualityRecord {
	return domain.LegacyQualityRecord{
		LotNumber:        doc.LotNumber,
		Form:             toDomainQualityControlForm(doc.Form),
		Palettes:         toDomainPalettes(doc.Palettes),
		SyncedToFirebase: doc.SyncedToFirebase,
		CreatedAt:        doc.CreatedAt,
	}
}
