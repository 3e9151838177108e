package settlements

import (
	"time"

	"github.com/google/uuid"

	"github.com/partnerledger/backend/pkg/db/models"
	"github.com/partnerledger/backend/pkg/enums"
	"github.com/partnerledger/backend/pkg/money"
)

// Preview is the computed payable for one party and period before
// anything is persisted. Lines carries the order lines that produced
// the totals so creation can snapshot them.
type Preview struct {
	PartyType             enums.PartyType
	PartyID               uuid.UUID
	PeriodStart           time.Time
	PeriodEnd             time.Time
	TotalSaleAmount       int64
	TotalBaseAmount       int64
	TotalCommissionAmount int64
	TotalMarginAmount     int64
	PayableAmount         int64
	ItemCount             int64
	Lines                 []models.OrderItem
}

// lineMatchesParty applies the party matching rule: sellers match their
// own lines, suppliers theirs, and the platform matches every line.
func lineMatchesParty(line models.OrderItem, partyType enums.PartyType, partyID uuid.UUID) bool {
	switch partyType {
	case enums.PartyTypeSeller:
		return line.SellerID == partyID
	case enums.PartyTypeSupplier:
		return line.SupplierID == partyID
	case enums.PartyTypePlatform:
		return true
	default:
		return false
	}
}

// payableFor applies the payout policy per party role:
// sellers earn margin less commission, suppliers the base cost,
// and the platform the commission.
func payableFor(partyType enums.PartyType, totalBase, totalCommission, totalMargin int64) int64 {
	switch partyType {
	case enums.PartyTypeSeller:
		return totalMargin - totalCommission
	case enums.PartyTypeSupplier:
		return totalBase
	case enums.PartyTypePlatform:
		return totalCommission
	default:
		return 0
	}
}

// buildPreview aggregates the delivered order lines that belong to the
// party. An empty slice yields a zero preview, which is a valid result.
func buildPreview(partyType enums.PartyType, partyID uuid.UUID, periodStart, periodEnd time.Time, lines []models.OrderItem) *Preview {
	preview := &Preview{
		PartyType:   partyType,
		PartyID:     partyID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}
	for _, line := range lines {
		if !lineMatchesParty(line, partyType, partyID) {
			continue
		}
		// Price snapshots are per unit; totals carry the full line.
		lineSale := line.SalePriceSnapshot * line.Quantity
		lineBase := line.BasePriceSnapshot * line.Quantity
		preview.TotalSaleAmount += lineSale
		preview.TotalBaseAmount += lineBase
		preview.TotalCommissionAmount += line.CommissionAmount
		preview.TotalMarginAmount += money.Margin(lineSale, lineBase)
		preview.ItemCount++
		preview.Lines = append(preview.Lines, line)
	}
	preview.PayableAmount = payableFor(partyType, preview.TotalBaseAmount, preview.TotalCommissionAmount, preview.TotalMarginAmount)
	return preview
}
