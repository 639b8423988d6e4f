package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/agrilot/api/internal/domain"
	pfirestore "github.com/agrilot/api/internal/platform/firestore"
)

const intakeLotCollection = "intakeLots"

// IntakeLotRepository stores reception-flow records in Firestore.
type IntakeLotRepository struct {
	base     *pfirestore.BaseRepository[intakeLotDocument]
	provider *pfirestore.Provider
}

// NewIntakeLotRepository constructs a Firestore-backed intake lot repository.
func NewIntakeLotRepository(provider *pfirestore.Provider) (*IntakeLotRepository, error) {
	if provider == nil {
		return nil, errors.New("intake lot repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[intakeLotDocument](provider, intakeLotCollection, nil, nil)
	return &IntakeLotRepository{base: base, provider: provider}, nil
}

// Create writes the lot under a store-assigned document ID and returns that ID.
func (r *IntakeLotRepository) Create(ctx context.Context, lot domain.IntakeLot) (string, error) {
	if r == nil || r.base == nil {
		return "", errors.New("intake lot repository not initialised")
	}
	return createWithGeneratedID(ctx, r.provider, r.base, intakeLotCollection, fromDomainIntakeLot(lot))
}

// FindByID loads a single intake lot.
func (r *IntakeLotRepository) FindByID(ctx context.Context, lotID string) (domain.IntakeLot, error) {
	if r == nil || r.base == nil {
		return domain.IntakeLot{}, errors.New("intake lot repository not initialised")
	}
	if strings.TrimSpace(lotID) == "" {
		return domain.IntakeLot{}, errors.New("lot id is required")
	}

	doc, err := r.base.Get(ctx, lotID)
	if err != nil {
		return domain.IntakeLot{}, err
	}

	lot := toDomainIntakeLot(doc.Data)
	lot.ID = doc.ID
	return lot, nil
}

type intakeLotDocument struct {
	LotNumber      string                `firestore:"lotNumber"`
	Status         string                `firestore:"status"`
	CurrentStep    int                   `firestore:"currentStep"`
	CompletedSteps []int                 `firestore:"completedSteps"`
	Harvest        intakeSectionDocument `firestore:"harvest"`
	Transport      intakeSectionDocument `firestore:"transport"`
	Sorting        intakeSectionDocument `firestore:"sorting"`
	Packaging      intakeSectionDocument `firestore:"packaging"`
	Storage        intakeSectionDocument `firestore:"storage"`
	Export         intakeSectionDocument `firestore:"export"`
	Delivery       intakeSectionDocument `firestore:"delivery"`
	CreatedAt      time.Time             `firestore:"createdAt"`
	UpdatedAt      time.Time             `firestore:"updatedAt"`
}

type intakeSectionDocument struct {
	LotNumber string     `firestore:"lotNumber"`
	Date      *time.Time `firestore:"date,omitempty"`
	Operator  string     `firestore:"operator"`
	Quantity  float64    `firestore:"quantity"`
	Notes     string     `firestore:"notes"`
}

func fromDomainIntakeLot(lot domain.IntakeLot) intakeLotDocument {
	return intakeLotDocument{
		LotNumber:      strings.TrimSpace(lot.LotNumber),
		Status:         lot.Status,
		CurrentStep:    lot.CurrentStep,
		CompletedSteps: append([]int(nil), lot.CompletedSteps...),
		Harvest:        fromDomainIntakeSection(lot.Harvest),
		Transport:      fromDomainIntakeSection(lot.Transport),
		Sorting:        fromDomainIntakeSection(lot.Sorting),
		Packaging:      fromDomainIntakeSection(lot.Packaging),
		Storage:        fromDomainIntakeSection(lot.Storage),
		Export:         fromDomainIntakeSection(lot.Export),
		Delivery:       fromDomainIntakeSection(lot.Delivery),
		CreatedAt:      lot.CreatedAt.UTC(),
		UpdatedAt:      lot.UpdatedAt.UTC(),
	}
}

func toDomainIntakeLot(doc intakeLotDocument) domain.IntakeLot {
	return domain.IntakeLot{
		LotNumber:      doc.LotNumber,
		Status:         doc.Status,
		CurrentStep:    doc.CurrentStep,
		CompletedSteps: append([]int(nil), doc.CompletedSteps...),
		Harvest:        toDomainIntakeSection(doc.Harvest),
		Transport:      toDomainIntakeSection(doc.Transport),
		Sorting:        toDomainIntakeSection(doc.Sorting),
		Packaging:      toDomainIntakeSection(doc.Packaging),
		Storage:        toDomainIntakeSection(doc.Storage),
		Export:         toDomainIntakeSection(doc.Export),
		Delivery:       toDomainIntakeSection(doc.Delivery),
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

func fromDomainIntakeSection(section domain.IntakeSection) intakeSectionDocument {
	return intakeSectionDocument{
		LotNumber: strings.TrimSpace(section.LotNumber),
		Date:      section.Date,
		Operator:  section.Operator,
		Quantity:  section.Quantity,
		Notes:     section.Notes,
	}
}

func toDomainIntakeSection(doc intakeSectionDocument) domain.IntakeSection {
	return domain.IntakeSection{
		LotNumber: doc.LotNumber,
		Date:      doc.Date,
		Operator:  doc.Operator,
		Quantity:  doc.Quantity,
		Notes:     doc.Notes,
	}
}
