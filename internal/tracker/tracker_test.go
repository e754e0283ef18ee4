package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stridewatch/stridewatch/internal/catalog"
)

func newTestTracker() *Tracker {
	return New(zap.NewNop(), nil)
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }
func boolPtr(b bool) *bool        { return &b }

func priorState(sizeID string, available bool, price, original float64, discount int) map[string]catalog.ObservationState {
	return map[string]catalog.ObservationState{
		sizeID: {
			SizeID:          sizeID,
			CaptureTime:     time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
			Available:       boolPtr(available),
			Price:           floatPtr(price),
			OriginalPrice:   floatPtr(original),
			DiscountPercent: intPtr(discount),
		},
	}
}

func TestDiffInitialForUnseenSize(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	now := time.Now().UTC()
	snaps := []catalog.Snapshot{
		{SizeID: "PROD-AAAA0000_DEFAULT_BLACK_9", Available: true, Price: "220", OriginalPrice: "220", DiscountPercent: "0"},
	}

	got := tr.Diff(map[string]catalog.ObservationState{}, snaps, now)
	require.Len(t, got, 1)
	require.Equal(t, catalog.ChangeInitial, got[0].ChangeType)
	require.Equal(t, now, got[0].CaptureTime)
	require.True(t, got[0].Available)
}

func TestDiffNoChangeAcrossRepresentations(t *testing.T) {
	t.Parallel()

	// Stored state comes back typed; fresh snapshots carry page strings.
	// Equivalent values in different shapes must not emit a row.
	tr := newTestTracker()
	prior := priorState("SIZE_1", true, 220, 220, 0)
	snaps := []catalog.Snapshot{
		{SizeID: "SIZE_1", Available: true, Price: "220.0", OriginalPrice: "220", DiscountPercent: "0"},
	}

	got := tr.Diff(prior, snaps, time.Now().UTC())
	require.Empty(t, got)
}

func TestDiffBoolStringEquivalence(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	prior := map[string]catalog.ObservationState{
		"SIZE_1": {SizeID: "SIZE_1", Available: boolPtr(false), Price: floatPtr(100), OriginalPrice: floatPtr(100), DiscountPercent: intPtr(0)},
	}
	snaps := []catalog.Snapshot{
		{SizeID: "SIZE_1", Available: false, Price: "100", OriginalPrice: "100", DiscountPercent: "0"},
	}

	require.Empty(t, tr.Diff(prior, snaps, time.Now().UTC()))
}

func TestDiffPriceDrop(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	prior := priorState("SIZE_1", true, 220, 220, 0)
	snaps := []catalog.Snapshot{
		{SizeID: "SIZE_1", Available: true, Price: "215", OriginalPrice: "220", DiscountPercent: "2"},
	}

	got := tr.Diff(prior, snaps, time.Now().UTC())
	require.Len(t, got, 1)
	require.Equal(t, "price,discount_percent", got[0].ChangeType)
}

func TestDiffCompositeChangeOrder(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	prior := priorState("SIZE_1", true, 220, 220, 0)
	snaps := []catalog.Snapshot{
		{SizeID: "SIZE_1", Available: false, Price: "199", OriginalPrice: "240", DiscountPercent: "17"},
	}

	got := tr.Diff(prior, snaps, time.Now().UTC())
	require.Len(t, got, 1)
	require.Equal(t, "available,price,original_price,discount_percent", got[0].ChangeType)
}

func TestDiffSentinelAgainstNull(t *testing.T) {
	t.Parallel()

	// A stored NULL and a scraped "N/A" are both unknown: no change.
	tr := newTestTracker()
	prior := map[string]catalog.ObservationState{
		"SIZE_1": {SizeID: "SIZE_1", Available: boolPtr(true), Price: nil, OriginalPrice: nil, DiscountPercent: intPtr(0)},
	}
	snaps := []catalog.Snapshot{
		{SizeID: "SIZE_1", Available: true, Price: "N/A", OriginalPrice: "N/A", DiscountPercent: "0"},
	}

	require.Empty(t, tr.Diff(prior, snaps, time.Now().UTC()))
}

func TestDiffKnownAgainstUnknownIsChange(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	prior := map[string]catalog.ObservationState{
		"SIZE_1": {SizeID: "SIZE_1", Available: boolPtr(true), Price: nil, OriginalPrice: floatPtr(220), DiscountPercent: intPtr(0)},
	}
	snaps := []catalog.Snapshot{
		{SizeID: "SIZE_1", Available: true, Price: "220", OriginalPrice: "220", DiscountPercent: "0"},
	}

	got := tr.Diff(prior, snaps, time.Now().UTC())
	require.Len(t, got, 1)
	require.Equal(t, "price", got[0].ChangeType)
}

func TestDiffIdempotentSecondRun(t *testing.T) {
	t.Parallel()

	tr := newTestTracker()
	first := tr.Diff(map[string]catalog.ObservationState{}, []catalog.Snapshot{
		{SizeID: "SIZE_1", Available: true, Price: "220", OriginalPrice: "220", DiscountPercent: "0"},
	}, time.Now().UTC())
	require.Len(t, first, 1)

	// Feed the first run's rows back as the stored state.
	prior := map[string]catalog.ObservationState{
		"SIZE_1": {
			SizeID:          "SIZE_1",
			Available:       boolPtr(true),
			Price:           floatPtr(220),
			OriginalPrice:   floatPtr(220),
			DiscountPercent: intPtr(0),
		},
	}
	second := tr.Diff(prior, []catalog.Snapshot{
		{SizeID: "SIZE_1", Available: true, Price: "220", OriginalPrice: "220", DiscountPercent: "0"},
	}, time.Now().UTC())
	require.Empty(t, second)
}

func TestNormalizeNumber(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		in    any
		want  float64
		known bool
	}{
		{"float", 220.0, 220, true},
		{"int", 220, 220, true},
		{"string", "220", 220, true},
		{"decimal string", "219.99", 219.99, true},
		{"na sentinel", "N/A", 0, false},
		{"empty", "", 0, false},
		{"nil", nil, 0, false},
		{"nil pointer", (*float64)(nil), 0, false},
		{"garbage", "abc", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, known := NormalizeNumber(tc.in)
			require.Equal(t, tc.known, known)
			if known {
				require.InDelta(t, tc.want, got, 1e-9)
			}
		})
	}
}

func TestNormalizeBool(t *testing.T) {
	t.Parallel()

	truthy := []any{true, "true", "True", "1", "yes", "y", 1}
	for _, v := range truthy {
		got, known := NormalizeBool(v)
		require.True(t, known, "%v", v)
		require.True(t, got, "%v", v)
	}
	falsy := []any{false, "false", "False", "0", "no", "n", "", 0}
	for _, v := range falsy {
		got, known := NormalizeBool(v)
		require.True(t, known, "%v", v)
		require.False(t, got, "%v", v)
	}
	_, known := NormalizeBool("maybe")
	require.False(t, known)
	_, known = NormalizeBool(nil)
	require.False(t, known)
}
