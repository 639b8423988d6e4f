package services

import (
	"testing"
	"time"

	domain "github.com/agrilot/api/internal/domain"
)

var defaultsNow = time.Date(2025, time.September, 12, 7, 30, 0, 0, time.UTC)

func defaultsOrder() domain.Order {
	return domain.Order{
		ID:          "ord_01TEST",
		OrderNumber: "ORD-MB3K2C9F",
		ClientName:  "ACME",
		Items: []domain.OrderItem{
			{Name: "Hass Avocado", Quantity: 500, Unit: "kg"},
		},
	}
}

func TestBuildProductionLotDefaults(t *testing.T) {
	lot := buildProductionLot(defaultsOrder(), defaultsNow)

	if lot.Type != "production" || lot.Status != domain.LotStatusDraft {
		t.Fatalf("unexpected type/status: %s/%s", lot.Type, lot.Status)
	}
	if lot.LotNumber != "ORD-MB3K2C9F" {
		t.Fatalf("unexpected lot number %q", lot.LotNumber)
	}
	if len(lot.Rows) != 26 {
		t.Fatalf("expected 26 blank rows, got %d", len(lot.Rows))
	}
	for i, row := range lot.Rows {
		if row != (domain.ProductionRow{}) {
			t.Fatalf("row %d must be blank, got %+v", i, row)
		}
	}
	if len(lot.CalibreBuckets) != 10 {
		t.Fatalf("expected 10 calibre buckets, got %d", len(lot.CalibreBuckets))
	}
	if lot.CalibreBuckets[0].Label != "12-14" || lot.CalibreBuckets[9].Label != "30-32" {
		t.Fatalf("unexpected calibre range %s..%s", lot.CalibreBuckets[0].Label, lot.CalibreBuckets[9].Label)
	}
	for _, bucket := range lot.CalibreBuckets {
		if bucket.Weight != 0 {
			t.Fatalf("bucket %s must start zeroed", bucket.Label)
		}
	}
	if lot.Header.Product != "Hass Avocado" || lot.Header.ClientName != "ACME" {
		t.Fatalf("unexpected header %+v", lot.Header)
	}
	if lot.Header.ClientLotRef != "ORD-MB3K2C9F" {
		t.Fatalf("unexpected client lot ref %q", lot.Header.ClientLotRef)
	}
}

func TestBuildQualitySharedLotDefaults(t *testing.T) {
	lot := buildQualitySharedLot(defaultsOrder(), defaultsNow)

	if lot.Type != "quality" || lot.Status != domain.LotStatusDraft {
		t.Fatalf("unexpected type/status: %s/%s", lot.Type, lot.Status)
	}
	if lot.Header.Product != "Hass Avocado" {
		t.Fatalf("unexpected header product %q", lot.Header.Product)
	}
}

func TestBuildQualityControlLotDefaults(t *testing.T) {
	lot := buildQualityControlLot(defaultsOrder(), defaultsNow)

	if lot.Status != domain.LotStatusDraft {
		t.Fatalf("unexpected status %q", lot.Status)
	}
	if lot.Form.Category != "dechets" {
		t.Fatalf("unexpected category %q", lot.Form.Category)
	}
	if lot.Form.Campaign != "2025-2026" {
		t.Fatalf("unexpected campaign %q", lot.Form.Campaign)
	}
	if len(lot.Palettes) != 5 {
		t.Fatalf("expected 5 palette slots, got %d", len(lot.Palettes))
	}
	for i, slot := range lot.Palettes {
		if slot.Number != i+1 {
			t.Fatalf("palette %d must be numbered %d, got %d", i, i+1, slot.Number)
		}
		if slot.Weight != 0 || slot.Defects != 0 || slot.Notes != "" {
			t.Fatalf("palette %d must start blank, got %+v", i, slot)
		}
	}
}

func TestBuildWasteTrackingLotDefaults(t *testing.T) {
	lot := buildWasteTrackingLot(defaultsOrder(), defaultsNow)

	if lot.Type != "dechets" || lot.Status != domain.LotStatusDraft {
		t.Fatalf("unexpected type/status: %s/%s", lot.Type, lot.Status)
	}
	if lot.Header.Code == "" || lot.Header.Version == "" {
		t.Fatalf("expected sheet revision header, got %+v", lot.Header)
	}
	if !lot.Header.Conventional || lot.Header.Organic {
		t.Fatalf("unexpected processing flags %+v", lot.Header)
	}
	if len(lot.Rows) != 26 {
		t.Fatalf("expected 26 blank waste rows, got %d", len(lot.Rows))
	}
}

func TestBuildIntakeLotDefaults(t *testing.T) {
	lot := buildIntakeLot(defaultsOrder(), defaultsNow)

	if lot.Status != domain.IntakeStatusDraft {
		t.Fatalf("unexpected status %q", lot.Status)
	}
	if lot.CurrentStep != 1 {
		t.Fatalf("expected current step 1, got %d", lot.CurrentStep)
	}
	if lot.CompletedSteps == nil || len(lot.CompletedSteps) != 0 {
		t.Fatalf("expected empty completed steps, got %v", lot.CompletedSteps)
	}
	sections := []domain.IntakeSection{
		lot.Harvest, lot.Transport, lot.Sorting, lot.Packaging,
		lot.Storage, lot.Export, lot.Delivery,
	}
	for i, section := range sections {
		if section.LotNumber != "ORD-MB3K2C9F" {
			t.Fatalf("section %d must carry the lot number, got %q", i, section.LotNumber)
		}
		if section.Operator != "" || section.Quantity != 0 || section.Date != nil {
			t.Fatalf("section %d must start blank, got %+v", i, section)
		}
	}
}

func TestBuildFallbackRecordDefaults(t *testing.T) {
	record := buildFallbackRecord(defaultsOrder(), defaultsNow)

	if record.LotNumber != "ORD-MB3K2C9F" {
		t.Fatalf("unexpected lot number %q", record.LotNumber)
	}
	if record.SyncedToFirebase {
		t.Fatal("fallback record must be flagged out-of-band")
	}
	if record.Form.Campaign != "2025-2026" || record.Form.Product != "Hass Avocado" {
		t.Fatalf("unexpected form %+v", record.Form)
	}
	if len(record.Palettes) != 5 {
		t.Fatalf("expected 5 palette slots, got %d", len(record.Palettes))
	}
}

func TestCampaignSpanWrapsCalendarYear(t *testing.T) {
	january := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	if got := campaignSpan(january); got != "2026-2027" {
		t.Fatalf("unexpected campaign %q", got)
	}
}
