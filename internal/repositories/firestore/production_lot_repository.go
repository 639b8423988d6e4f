package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/agrilot/api/internal/domain"
	pfirestore "github.com/agrilot/api/internal/platform/firestore"
)

const productionLotCollection = "productionLots"

// ProductionLotRepository stores packing-floor production sheets in Firestore.
type ProductionLotRepository struct {
	base     *pfirestore.BaseRepository[productionLotDocument]
	provider *pfirestore.Provider
}

// NewProductionLotRepository constructs a Firestore-backed production lot repository.
func NewProductionLotRepository(provider *pfirestore.Provider) (*ProductionLotRepository, error) {
	if provider == nil {
		return nil, errors.New("production lot repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[productionLotDocument](provider, productionLotCollection, nil, nil)
	return &ProductionLotRepository{base: base, provider: provider}, nil
}

// Create writes the lot under a store-assigned document ID and returns that ID.
func (r *ProductionLotRepository) Create(ctx context.Context, lot domain.ProductionLot) (string, error) {
	if r == nil || r.base == nil {
		return "", errors.New("production lot repository not initialised")
	}
	return createWithGeneratedID(ctx, r.provider, r.base, productionLotCollection, fromDomainProductionLot(lot))
}

// FindByID loads a single production lot.
func (r *ProductionLotRepository) FindByID(ctx context.Context, lotID string) (domain.ProductionLot, error) {
	if r == nil || r.base == nil {
		return domain.ProductionLot{}, errors.New("production lot repository not initialised")
	}
	if strings.TrimSpace(lotID) == "" {
		return domain.ProductionLot{}, errors.New("lot id is required")
	}

	doc, err := r.base.Get(ctx, lotID)
	if err != nil {
		return domain.ProductionLot{}, err
	}

	lot := toDomainProductionLot(doc.Data)
	lot.ID = doc.ID
	return lot, nil
}

type productionLotDocument struct {
	LotNumber      string                  `firestore:"lotNumber"`
	Type           string                  `firestore:"type"`
	Status         string                  `firestore:"status"`
	Header         lotHeaderDocument       `firestore:"header"`
	CalibreBuckets []calibreBucketDocument `firestore:"calibreBuckets"`
	Rows           []productionRowDocument `firestore:"rows"`
	CreatedAt      time.Time               `firestore:"createdAt"`
	UpdatedAt      time.Time               `firestore:"updatedAt"`
}

type lotHeaderDocument struct {
	Date         time.Time `firestore:"date"`
	Product      string    `firestore:"product"`
	ClientName   string    `firestore:"clientName"`
	ClientLotRef string    `firestore:"clientLotRef"`
}

type calibreBucketDocument struct {
	Label  string  `firestore:"label"`
	Weight float64 `firestore:"weight"`
}

type productionRowDocument struct {
	Pallet  string  `firestore:"pallet"`
	Calibre string  `firestore:"calibre"`
	Crates  int     `firestore:"crates"`
	Weight  float64 `firestore:"weight"`
}

func fromDomainProductionLot(lot domain.ProductionLot) productionLotDocument {
	doc := productionLotDocument{
		LotNumber: strings.TrimSpace(lot.LotNumber),
		Type:      lot.Type,
		Status:    lot.Status,
		Header:    fromDomainLotHeader(lot.Header),
		CreatedAt: lot.CreatedAt.UTC(),
		UpdatedAt: lot.UpdatedAt.UTC(),
	}
	for _, bucket := range lot.CalibreBuckets {
		doc.CalibreBuckets = append(doc.CalibreBuckets, calibreBucketDocument{
			Label:  bucket.Label,
			Weight: bucket.Weight,
		})
	}
	for _, row := range lot.Rows {
		doc.Rows = append(doc.Rows, productionRowDocument{
			Pallet:  row.Pallet,
			Calibre: row.Calibre,
			Crates:  row.Crates,
			Weight:  row.Weight,
		})
	}
	return doc
}

func toDomainProductionLot(doc productionLotDocument) domain.ProductionLot {
	lot := domain.ProductionLot{
		LotNumber: doc.LotNumber,
		Type:      doc.Type,
		Status:    doc.Status,
		Header:    toDomainLotHeader(doc.Header),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, bucket := range doc.CalibreBuckets {
		lot.CalibreBuckets = append(lot.CalibreBuckets, domain.CalibreBucket{
			Label:  bucket.Label,
			Weight: bucket.Weight,
		})
	}
	for _, row := range doc.Rows {
		lot.Rows = append(lot.Rows, domain.ProductionRow{
			Pallet:  row.Pallet,
			Calibre: row.Calibre,
			Crates:  row.Crates,
			Weight:  row.Weight,
		})
	}
	return lot
}

func fromDomainLotHeader(header domain.LotHeader) lotHeaderDocument {
	return lotHeaderDocument{
		Date:         header.Date.UTC(),
		Product:      strings.TrimSpace(header.Product),
		ClientName:   strings.TrimSpace(header.ClientName),
		ClientLotRef: strings.TrimSpace(header.ClientLotRef),
	}
}

func toDomainLotHeader(doc lotHeaderDocument) domain.LotHeader {
	return domain.LotHeader{
		Date:         doc.Date,
		Product:      doc.Product,
		ClientName:   doc.ClientName,
		ClientLotRef: doc.ClientLotRef,
	}
}

// createWithGeneratedID reserves a store-assigned document ID on the target
// collection and writes the payload underneath it.
func createWithGeneratedID[T any](ctx context.Context, provider *pfirestore.Provider, base *pfirestore.BaseRepository[T], collection string, value T) (string, error) {
	if provider == nil {
		return "", errors.New("firestore provider unavailable")
	}
	client, err := provider.Client(ctx)
	if err != nil {
		return "", err
	}

	ref := client.Collection(collection).NewDoc()
	if _, err := base.Set(ctx, ref.ID, value); err != nil {
		return "", err
	}
	return ref.ID, nil
}
