package domain

import "time"

// LotVariant identifies one of the five dependent record families created per order.
type LotVariant string

const (
	VariantProduction     LotVariant = "production"
	VariantQualityShared  LotVariant = "qualityShared"
	VariantQualityControl LotVariant = "qualityControl"
	VariantWasteTracking  LotVariant = "wasteTracking"
	VariantIntake         LotVariant = "intake"
)

// LotVariants lists every variant in provisioning order.
var LotVariants = []LotVariant{
	VariantProduction,
	VariantQualityShared,
	VariantQualityControl,
	VariantWasteTracking,
	VariantIntake,
}

// Draft states carried by freshly provisioned lot records. The packing-floor
// collections use the French label, the intake flow uses the English one.
const (
	LotStatusDraft    = "brouillon"
	IntakeStatusDraft = "draft"
)

// LotHeader carries the shared identification block of the packing-floor lots.
type LotHeader struct {
	Date         time.Time
	Product      string
	ClientName   string
	ClientLotRef string
}

// CalibreBucket is one size class of the production grading table.
type CalibreBucket struct {
	Label  string
	Weight float64
}

// ProductionRow is one per-pallet line of the production sheet, blank until
// the floor fills it in.
type ProductionRow struct {
	Pallet  string
	Calibre string
	Crates  int
	Weight  float64
}

// ProductionLot is the packing-floor production sheet seeded at provisioning time.
type ProductionLot struct {
	ID             string
	LotNumber      string
	Type           string
	Status         string
	Header         LotHeader
	CalibreBuckets []CalibreBucket
	Rows           []ProductionRow
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// QualitySharedLot carries only header metadata shared with the quality team.
type QualitySharedLot struct {
	ID        string
	LotNumber string
	Type      string
	Status    string
	Header    LotHeader
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaletteSlot is one quality-control palette placeholder.
type PaletteSlot struct {
	Number  int
	Weight  float64
	Defects int
	Notes   string
}

// QualityControlForm holds the pre-seeded quality-control questionnaire header.
type QualityControlForm struct {
	Category string
	Campaign string
	Product  string
}

// QualityControlLot lives in its own store and backs the quality review screens.
type QualityControlLot struct {
	ID        string
	LotNumber string
	Status    string
	Form      QualityControlForm
	Palettes  []PaletteSlot
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WasteHeader describes the waste sheet revision and processing modes.
type WasteHeader struct {
	Code         string
	Version      string
	Conventional bool
	Organic      bool
}

// WasteRow is one blank waste line to be filled during processing.
type WasteRow struct {
	Date     *time.Time
	Product  string
	Quantity float64
	Reason   string
}

// WasteTrackingLot is the waste declaration sheet for one lot.
type WasteTrackingLot struct {
	ID        string
	LotNumber string
	Type      string
	Status    string
	Header    WasteHeader
	Rows      []WasteRow
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IntakeSection is one stage of the intake flow, pre-seeded with the lot number.
type IntakeSection struct {
	LotNumber string
	Date      *time.Time
	Operator  string
	Quantity  float64
	Notes     string
}

// IntakeLot spans the whole reception flow from harvest to delivery.
type IntakeLot struct {
	ID             string
	LotNumber      string
	Status         string
	CurrentStep    int
	CompletedSteps []int
	Harvest        IntakeSection
	Transport      IntakeSection
	Sorting        IntakeSection
	Packaging      IntakeSection
	Storage        IntakeSection
	Export         IntakeSection
	Delivery       IntakeSection
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LegacyQualityRecord is the minimal out-of-band record written when the full
// provisioning pass fails, so quality review still has something to show.
type LegacyQualityRecord struct {
	ID               string
	LotNumber        string
	Form             QualityControlForm
	Palettes         []PaletteSlot
	SyncedToFirebase bool
	CreatedAt        time.Time
}

// ProvisionStepStatus tracks the outcome of one provisioning step.
type ProvisionStepStatus string

const (
	ProvisionStepPending   ProvisionStepStatus = "pending"
	ProvisionStepSucceeded ProvisionStepStatus = "succeeded"
	ProvisionStepFailed    ProvisionStepStatus = "failed"
)

// ProvisionStep is one persisted step-log entry of a provisioning pass.
type ProvisionStep struct {
	Variant  LotVariant
	Status   ProvisionStepStatus
	ResultID string
	Error    string
}

// ProvisionLog records what a provisioning pass actually did, so a later
// retry can re-run only the failed steps instead of duplicating the rest.
type ProvisionLog struct {
	OrderID      string
	OrderNumber  string
	Steps        []ProvisionStep
	LinkbackDone bool
	FallbackDone bool
	Attempts     int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Step returns the entry for the given variant, if present.
func (l ProvisionLog) Step(variant LotVariant) (ProvisionStep, bool) {
	for _, step := range l.Steps {
		if step.Variant == variant {
			return step, true
		}
	}
	return ProvisionStep{}, false
}

// FailedVariants lists the variants whose step did not succeed.
func (l ProvisionLog) FailedVariants() []LotVariant {
	var failed []LotVariant
	for _, step := range l.Steps {
		if step.Status != ProvisionStepSucceeded {
			failed = append(failed, step.Variant)
		}
	}
	return failed
}
