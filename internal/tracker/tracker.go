package tracker

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stridewatch/stridewatch/internal/catalog"
	"github.com/stridewatch/stridewatch/internal/metrics"
)

// Tracker decides which snapshots become observation rows.
type Tracker struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func New(logger *zap.Logger, m *metrics.Metrics) *Tracker {
	return &Tracker{logger: logger, metrics: m}
}

// Diff compares fresh snapshots against the latest persisted state per size
// and returns one observation per size that is new or changed. Sizes whose
// normalized values match their prior state produce nothing. All returned
// rows share captureTime so a run is a single consistent capture.
func (t *Tracker) Diff(prior map[string]catalog.ObservationState, fresh []catalog.Snapshot, captureTime time.Time) []catalog.PriceObservation {
	var out []catalog.PriceObservation
	for _, snap := range fresh {
		prev, seen := prior[snap.SizeID]
		if !seen {
			out = append(out, t.observation(snap, captureTime, catalog.ChangeInitial))
			continue
		}
		changed := t.changedFields(prev, snap)
		if len(changed) == 0 {
			continue
		}
		out = append(out, t.observation(snap, captureTime, strings.Join(changed, ",")))
	}
	return out
}

// changedFields reports which tracked fields differ, in a fixed order so the
// composite change type is stable across runs.
func (t *Tracker) changedFields(prev catalog.ObservationState, snap catalog.Snapshot) []string {
	var changed []string
	if !boolsEqual(prev.Available, snap.Available) {
		changed = append(changed, "available")
	}
	if !numbersEqual(prev.Price, snap.Price) {
		changed = append(changed, "price")
	}
	if !numbersEqual(prev.OriginalPrice, snap.OriginalPrice) {
		changed = append(changed, "original_price")
	}
	if !numbersEqual(prev.DiscountPercent, snap.DiscountPercent) {
		changed = append(changed, "discount_percent")
	}
	return changed
}

func (t *Tracker) observation(snap catalog.Snapshot, captureTime time.Time, changeType string) catalog.PriceObservation {
	t.logger.Debug("change detected",
		zap.String("size_id", snap.SizeID),
		zap.String("change_type", changeType))
	t.metrics.ChangeDetected(changeType)
	return catalog.PriceObservation{
		SizeID:          snap.SizeID,
		CaptureTime:     captureTime,
		Available:       snap.Available,
		Price:           snap.Price,
		OriginalPrice:   snap.OriginalPrice,
		DiscountPercent: snap.DiscountPercent,
		ChangeType:      changeType,
	}
}
