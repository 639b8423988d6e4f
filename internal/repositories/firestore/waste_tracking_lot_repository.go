package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/agrilot/api/internal/domain"
	pfirestore "github.com/agrilot/api/internal/platform/firestore"
)

const wasteTrackingLotCollection = "wasteTrackingLots"

// WasteTrackingLotRepository stores waste declaration sheets in Firestore.
type WasteTrackingLotRepository struct {
	base     *pfirestore.BaseRepository[wasteTrackingLotDocument]
	provider *pfirestore.Provider
}

// NewWasteTrackingLotRepository constructs a Firestore-backed waste tracking repository.
func NewWasteTrackingLotRepository(provider *pfirestore.Provider) (*WasteTrackingLotRepository, error) {
	if provider == nil {
		return nil, errors.New("waste tracking lot repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[wasteTrackingLotDocument](provider, wasteTrackingLotCollection, nil, nil)
	return &WasteTrackingLotRepository{base: base, provider: provider}, nil
}

// Create writes the lot under a store-assigned document ID and returns that ID.
func (r *WasteTrackingLotRepository) Create(ctx context.Context, lot domain.WasteTrackingLot) (string, error) {
	if r == nil || r.base == nil {
		return "", errors.New("waste tracking lot repository not initialised")
	}
	return createWithGeneratedID(ctx, r.provider, r.base, wasteTrackingLotCollection, fromDomainWasteTrackingLot(lot))
}

// FindByID loads a single waste tracking lot.
func (r *WasteTrackingLotRepository) FindByID(ctx context.Context, lotID string) (domain.WasteTrackingLot, error) {
	if r == nil || r.base == nil {
		return domain.WasteTrackingLot{}, errors.New("waste tracking lot repository not initialised")
	}
	if strings.TrimSpace(lotID) == "" {
		return domain.WasteTrackingLot{}, errors.New("lot id is required")
	}

	doc, err := r.base.Get(ctx, lotID)
	if err != nil {
		return domain.WasteTrackingLot{}, err
	}

	lot := toDomainWasteTrackingLot(doc.Data)
	lot.ID = doc.ID
	return lot, nil
}

type wasteTrackingLotDocument struct {
	LotNumber string              `firestore:"lotNumber"`
	Type      string              `firestore:"type"`
	Status    string              `firestore:"status"`
	Header    wasteHeaderDocument `firestore:"header"`
	Rows      []wasteRowDocument  `firestore:"rows"`
	CreatedAt time.Time           `firestore:"createdAt"`
	UpdatedAt time.Time           `firestore:"updatedAt"`
}

type wasteHeaderDocument struct {
	Code         string `firestore:"code"`
	Version      string `firestore:"version"`
	Conventional bool   `firestore:"conventional"`
	Organic      bool   `firestore:"organic"`
}

type wasteRowDocument struct {
	Date     *time.Time `firestore:"date,omitempty"`
	Product  string     `firestore:"product"`
	Quantity float64    `firestore:"quantity"`
	Reason   string     `firestore:"reason"`
}

func fromDomainWasteTrackingLot(lot domain.WasteTrackingLot) wasteTrackingLotDocument {
	doc := wasteTrackingLotDocument{
		LotNumber: strings.TrimSpace(lot.LotNumber),
		Type:      lot.Type,
		Status:    lot.Status,
		Header: wasteHeaderDocument{
			Code:         strings.TrimSpace(lot.Header.Code),
			Version:      strings.TrimSpace(lot.Header.Version),
			Conventional: lot.Header.Conventional,
			Organic:      lot.Header.Organic,
		},
		CreatedAt: lot.CreatedAt.UTC(),
		UpdatedAt: lot.UpdatedAt.UTC(),
	}
	for _, row := range lot.Rows {
		doc.Rows = append(doc.Rows, wasteRowDocument{
			Date:     row.Date,
			Product:  row.Product,
			Quantity: row.Quantity,
			Reason:   row.Reason,
		})
	}
	return doc
}

func toDomainWasteTrackingLot(doc wasteTrackingLotDocument) domain.WasteTrackingLot {
	lot := domain.WasteTrackingLot{
		LotNumber: doc.LotNumber,
		Type:      doc.Type,
		Status:    doc.Status,
		Header: domain.WasteHeader{
			Code:         doc.Header.Code,
			Version:      doc.Header.Version,
			Conventional: doc.Header.Conventional,
			Organic:      doc.Header.Organic,
		},
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, row := range doc.Rows {
		lot.Rows = append(lot.Rows, domain.WasteRow{
			Date:     row.Date,
			Product:  row.Product,
			Quantity: row.Quantity,
			Reason:   row.Reason,
		})
	}
	return lot
}
