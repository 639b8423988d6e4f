package services

import (
	"fmt"
	"time"

	domain "github.com/agrilot/api/internal/domain"
)

// Default payload dimensions expected by the downstream editing screens.
// The record shapes matter more than the values: every array is created at
// its full fixed length so the floor tooling can edit rows in place.
const (
	productionRowCount = 26
	wasteRowCount      = 26
	paletteSlotCount   = 5

	wasteSheetCode    = "ENR-DECH"
	wasteSheetVersion = "02"

	qualityFormCategory = "dechets"
)

var calibreLabels = []string{
	"12-14", "14-16", "16-18", "18-20", "20-22",
	"22-24", "24-26", "26-28", "28-30", "30-32",
}

// buildProductionLot seeds the packing-floor production sheet: zeroed calibre
// buckets plus the blank per-pallet rows.
func buildProductionLot(order domain.Order, now time.Time) domain.ProductionLot {
	buckets := make([]domain.CalibreBucket, 0, len(calibreLabels))
	for _, label := range calibreLabels {
		buckets = append(buckets, domain.CalibreBucket{Label: label})
	}

	rows := make([]domain.ProductionRow, productionRowCount)

	return domain.ProductionLot{
		LotNumber:      order.OrderNumber,
		Type:           string(domain.VariantProduction),
		Status:         domain.LotStatusDraft,
		Header:         buildLotHeader(order, now),
		CalibreBuckets: buckets,
		Rows:           rows,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// buildQualitySharedLot carries only the header metadata shared with the quality team.
func buildQualitySharedLot(order domain.Order, now time.Time) domain.QualitySharedLot {
	return domain.QualitySharedLot{
		LotNumber: order.OrderNumber,
		Type:      "quality",
		Status:    domain.LotStatusDraft,
		Header:    buildLotHeader(order, now),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// buildQualityControlLot seeds the standalone quality-control form with its
// campaign span and the fixed palette placeholders.
func buildQualityControlLot(order domain.Order, now time.Time) domain.QualityControlLot {
	palettes := make([]domain.PaletteSlot, 0, paletteSlotCount)
	for i := 1; i <= paletteSlotCount; i++ {
		palettes = append(palettes, domain.PaletteSlot{Number: i})
	}

	return domain.QualityControlLot{
		LotNumber: order.OrderNumber,
		Status:    domain.LotStatusDraft,
		Form: domain.QualityControlForm{
			Category: qualityFormCategory,
			Campaign: campaignSpan(now),
			Product:  order.FirstProductName(),
		},
		Palettes:  palettes,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// buildWasteTrackingLot seeds the waste declaration sheet with its revision
// header and blank rows.
func buildWasteTrackingLot(order domain.Order, now time.Time) domain.WasteTrackingLot {
	return domain.WasteTrackingLot{
		LotNumber: order.OrderNumber,
		Type:      "dechets",
		Status:    domain.LotStatusDraft,
		Header: domain.WasteHeader{
			Code:         wasteSheetCode,
			Version:      wasteSheetVersion,
			Conventional: true,
			Organic:      false,
		},
		Rows:      make([]domain.WasteRow, wasteRowCount),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// buildIntakeLot spans the whole reception flow, every section pre-seeded with
// the lot number so operators never have to retype it.
func buildIntakeLot(order domain.Order, now time.Time) domain.IntakeLot {
	section := domain.IntakeSection{LotNumber: order.OrderNumber}

	return domain.IntakeLot{
		LotNumber:      order.OrderNumber,
		Status:         domain.IntakeStatusDraft,
		CurrentStep:    1,
		CompletedSteps: []int{},
		Harvest:        section,
		Transport:      section,
		Sorting:        section,
		Packaging:      section,
		Storage:        section,
		Export:         section,
		Delivery:       section,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// buildFallbackRecord is the minimal legacy-store placeholder written when the
// provisioning pass fails.
func buildFallbackRecord(order domain.Order, now time.Time) domain.LegacyQualityRecord {
	palettes := make([]domain.PaletteSlot, 0, paletteSlotCount)
	for i := 1; i <= paletteSlotCount; i++ {
		palettes = append(palettes, domain.PaletteSlot{Number: i})
	}

	return domain.LegacyQualityRecord{
		LotNumber: order.OrderNumber,
		Form: domain.QualityControlForm{
			Category: qualityFormCategory,
			Campaign: campaignSpan(now),
			Product:  order.FirstProductName(),
		},
		Palettes:         palettes,
		SyncedToFirebase: false,
		CreatedAt:        now,
	}
}

func buildLotHeader(order domain.Order, now time.Time) domain.LotHeader {
	return domain.LotHeader{
		Date:         now,
		Product:      order.FirstProductName(),
		ClientName:   order.ClientName,
		ClientLotRef: order.OrderNumber,
	}
}

// campaignSpan renders the running campaign as "YYYY-YYYY+1", e.g. "2025-2026".
func campaignSpan(now time.Time) string {
	year := now.Year()
	return fmt.Sprintf("%d-%d", year, year+1)
}
