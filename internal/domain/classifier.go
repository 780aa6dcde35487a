package domain

import (
	"fmt"
	"math"
)

// Oversell tiers: a small shortage is tolerated, a moderate one is
// flagged for partial fulfillment, anything larger blocks outright.
const (
	OversellMildMax   = 2
	OversellSevereMax = 10
)

// Price variance tolerances as a percentage of the reference price
const (
	PriceVarianceMinorMax = 5.0
	PriceVarianceMajorMax = 15.0
)

// Classify computes the conflict verdict for a proposed event against the
// current stock snapshot. It is a pure function: no I/O, no mutation.
// Checks run in order and the first match wins.
func Classify(event *StockEvent, ctx *StockContext) *ConflictDetails {
	if verdict := classifyLifecycle(ctx); verdict != nil {
		return verdict
	}
	if verdict := classifyChannelStatus(ctx); verdict != nil {
		return verdict
	}
	if event.EventType.IsConsumption() {
		if verdict := classifyStock(event, ctx); verdict != nil {
			return verdict
		}
	}
	if event.UnitPrice != nil {
		if verdict := classifyPrice(event, ctx); verdict != nil {
			return verdict
		}
	}
	return NoConflict(ctx.Available)
}

func classifyLifecycle(ctx *StockContext) *ConflictDetails {
	if ctx.EntityStatus == EntityStatusActive {
		return nil
	}
	return &ConflictDetails{
		Type:                ConflictProductUnavailable,
		Severity:            SeverityCritical,
		AvailableQuantity:   ctx.Available,
		Message:             fmt.Sprintf("entity %s is %s and cannot be sold", ctx.EntityID, ctx.EntityStatus),
		SuggestedResolution: SuggestReject,
	}
}

func classifyChannelStatus(ctx *StockContext) *ConflictDetails {
	switch ctx.ChannelStatus {
	case ChannelStatusInactive:
		return &ConflictDetails{
			Type:                ConflictChannelDisabled,
			Severity:            SeverityCritical,
			AvailableQuantity:   ctx.Available,
			Message:             fmt.Sprintf("channel %s is inactive for entity %s", ctx.Channel, ctx.EntityID),
			SuggestedResolution: SuggestReject,
		}
	case ChannelStatusPaused:
		return &ConflictDetails{
			Type:                ConflictChannelDisabled,
			Severity:            SeveritySevere,
			AvailableQuantity:   ctx.Available,
			Message:             fmt.Sprintf("channel %s is paused for entity %s", ctx.Channel, ctx.EntityID),
			SuggestedResolution: SuggestManualReview,
		}
	}
	return nil
}

func classifyStock(event *StockEvent, ctx *StockContext) *ConflictDetails {
	requested := event.RequestedQuantity()

	effective, unlimited := ctx.EffectiveAvailable()
	if unlimited || requested <= effective {
		return nil
	}

	// Within the shared pool but over the channel's allocation: the
	// stock physically exists, so this is an allocation breach rather
	// than an oversell.
	if ctx.InventoryMode == ModeAllocated && requested > ctx.AllocatedQuantity && requested <= ctx.Available {
		return &ConflictDetails{
			Type:                ConflictAllocationExceeded,
			Severity:            SeveritySevere,
			RequestedQuantity:   requested,
			AvailableQuantity:   effective,
			Shortage:            requested - effective,
			Message:             fmt.Sprintf("requested %d exceeds channel allocation of %d for entity %s", requested, ctx.AllocatedQuantity, ctx.EntityID),
			SuggestedResolution: SuggestPartial,
		}
	}

	shortage := requested - effective
	verdict := &ConflictDetails{
		RequestedQuantity: requested,
		AvailableQuantity: effective,
		Shortage:          shortage,
		Message:           fmt.Sprintf("requested %d but only %d available for entity %s (short %d)", requested, effective, ctx.EntityID, shortage),
	}

	switch {
	case shortage <= OversellMildMax:
		verdict.Type = ConflictOversellMild
		verdict.Severity = SeverityMild
		verdict.SuggestedResolution = SuggestAccept
	case shortage <= OversellSevereMax:
		verdict.Type = ConflictOversellSevere
		verdict.Severity = SeveritySevere
		verdict.SuggestedResolution = SuggestPartial
	default:
		verdict.Type = ConflictOversellSevere
		verdict.Severity = SeverityCritical
		verdict.SuggestedResolution = SuggestManualReview
	}
	return verdict
}

func classifyPrice(event *StockEvent, ctx *StockContext) *ConflictDetails {
	if ctx.ReferencePrice <= 0 {
		return nil
	}

	variance := math.Abs(*event.UnitPrice-ctx.ReferencePrice) / ctx.ReferencePrice * 100
	if variance <= PriceVarianceMinorMax {
		return nil
	}

	verdict := &ConflictDetails{
		AvailableQuantity: ctx.Available,
		PriceVariancePct:  variance,
		Message:           fmt.Sprintf("unit price %.2f deviates %.1f%% from reference price %.2f", *event.UnitPrice, variance, ctx.ReferencePrice),
	}
	if variance <= PriceVarianceMajorMax {
		verdict.Type = ConflictPriceMismatchMinor
		verdict.Severity = SeverityMild
		verdict.SuggestedResolution = SuggestAccept
	} else {
		verdict.Type = ConflictPriceMismatchMajor
		verdict.Severity = SeveritySevere
		verdict.SuggestedResolution = SuggestManualReview
	}
	return verdict
}
