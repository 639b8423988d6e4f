package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/agrilot/api/internal/domain"
	pfirestore "github.com/agrilot/api/internal/platform/firestore"
)

const qualityControlLotCollection = "qualityControlLots"

// QualityControlLotRepository stores standalone quality-control forms in Firestore.
type QualityControlLotRepository struct {
	base     *pfirestore.BaseRepository[qualityControlLotDocument]
	provider *pfirestore.Provider
}

// NewQualityControlLotRepository constructs a Firestore-backed quality-control lot repository.
func NewQualityControlLotRepository(provider *pfirestore.Provider) (*QualityControlLotRepository, error) {
	if provider == nil {
		return nil, errors.New("quality control lot repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[qualityControlLotDocument](provider, qualityControlLotCollection, nil, nil)
	return &QualityControlLotRepository{base: base, provider: provider}, nil
}

// Create writes the lot under a store-assigned document ID and returns that ID.
func (r *QualityControlLotRepository) Create(ctx context.Context, lot domain.QualityControlLot) (string, error) {
	if r == nil || r.base == nil {
		return "", errors.New("quality control lot repository not initialised")
	}
	return createWithGeneratedID(ctx, r.provider, r.base, qualityControlLotCollection, fromDomainQualityControlLot(lot))
}

// FindByID loads a single quality-control lot.
func (r *QualityControlLotRepository) FindByID(ctx context.Context, lotID string) (domain.QualityControlLot, error) {
	if r == nil || r.base == nil {
		return domain.QualityControlLot{}, errors.New("quality control lot repository not initialised")
	}
	if strings.TrimSpace(lotID) == "" {
		return domain.QualityControlLot{}, errors.New("lot id is required")
	}

	doc, err := r.base.Get(ctx, lotID)
	if err != nil {
		return domain.QualityControlLot{}, err
	}

	lot := toDomainQualityControlLot(doc.Data)
	lot.ID = doc.ID
	return lot, nil
}

type qualityControlLotDocument struct {
	LotNumber string                     `firestore:"lotNumber"`
	Status    string                     `firestore:"status"`
	Form      qualityControlFormDocument `firestore:"form"`
	Palettes  []paletteSlotDocument      `firestore:"palettes"`
	CreatedAt time.Time                  `firestore:"createdAt"`
	UpdatedAt time.Time                  `firestore:"updatedAt"`
}

type qualityControlFormDocument struct {
	Category string `firestore:"category"`
	Campaign string `firestore:"campaign"`
	Product  string `firestore:"product"`
}

type paletteSlotDocument struct {
	Number  int     `firestore:"number"`
	Weight  float64 `firestore:"weight"`
	Defects int     `firestore:"defects"`
	Notes   string  `firestore:"notes"`
}

func fromDomainQualityControlLot(lot domain.QualityControlLot) qualityControlLotDocument {
	doc := qualityControlLotDocument{
		LotNumber: strings.TrimSpace(lot.LotNumber),
		Status:    lot.Status,
		Form:      fromDomainQualityControlForm(lot.Form),
		CreatedAt: lot.CreatedAt.UTC(),
		UpdatedAt: lot.UpdatedAt.UTC(),
	}
	doc.Palettes = fromDomainPalettes(lot.Palettes)
	return doc
}

func toDomainQualityControlLot(doc qualityControlLotDocument) domain.QualityControlLot {
	return domain.QualityControlLot{
		LotNumber: doc.LotNumber,
		Status:    doc.Status,
		Form:      toDomainQualityControlForm(doc.Form),
		Palettes:  toDomainPalettes(doc.Palettes),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func fromDomainQualityControlForm(form domain.QualityControlForm) qualityControlFormDocument {
	return qualityControlFormDocument{
		Category: strings.TrimSpace(form.Category),
		Campaign: strings.TrimSpace(form.Campaign),
		Product:  strings.TrimSpace(form.Product),
	}
}

func toDomainQualityControlForm(doc qualityControlFormDocument) domain.QualityControlForm {
	return domain.QualityControlForm{
		Category: doc.Category,
		Campaign: doc.Campaign,
		Product:  doc.Product,
	}
}

func fromDomainPalettes(palettes []domain.PaletteSlot) []paletteSlotDocument {
	var docs []paletteSlotDocument
	for _, slot := range palettes {
		docs = append(docs, paletteSlotDocument{
			Number:  slot.Number,
			Weight:  slot.Weight,
			Defects: slot.Defects,
			Notes:   slot.Notes,
		})
	}
	return docs
}

func toDomainPalettes(docs []paletteSlotDocument) []domain.PaletteSlot {
	var palettes []domain.PaletteSlot
	for _, doc := range docs {
		palettes = append(palettes, domain.PaletteSlot{
			Number:  doc.Number,
			Weight:  doc.Weight,
			Defects: doc.Defects,
			Notes:   doc.Notes,
		})
	}
	return palettes
}
