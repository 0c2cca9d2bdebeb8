package attribution

import (
	"sort"

	"github.com/radiusdt/vector-attribution/internal/models"
)

// JoinedRow is one row of the full outer join between attribution and spend.
type JoinedRow struct {
	Key    models.GroupKey
	Totals Totals
}

// JoinSpend full-outer-joins attribution with spend on group identity. Groups
// present on one side only are kept with the other side's metrics at zero, and
// the key's display ids are taken from whichever side has them. Rows come out in
// attribution order followed by spend-only groups.
func JoinSpend(attribution, spend *Grouping) []JoinedRow {
	rows := make([]JoinedRow, 0, attribution.Len()+spend.Len())

	for _, a := range attribution.Groups() {
		row := JoinedRow{Key: a.Key, Totals: a.Totals}
		if s, ok := spend.Get(a.Key); ok {
			coalesceKey(&row.Key, s.Key)
			row.Totals.AdSpend = s.Totals.AdSpend
			row.Totals.Impressions = s.Totals.Impressions
			row.Totals.Clicks = s.Totals.Clicks
			row.Totals.Conversions = s.Totals.Conversions
		}
		rows = append(rows, row)
	}

	for _, s := range spend.Groups() {
		if _, ok := attribution.Get(s.Key); ok {
			continue
		}
		rows = append(rows, JoinedRow{Key: s.Key, Totals: s.Totals})
	}
	return rows
}

// deriveMetrics builds the level's metric bundle from additive totals.
func deriveMetrics(level models.AggregationLevel, t Totals, ignoreVAT bool) models.MetricBundle {
	b := models.MetricBundle{
		AttributedOrders:         t.AttributedOrders,
		AttributedRevenue:        t.AttributedRevenue,
		DistinctOrdersTouched:    t.DistinctOrdersTouched,
		AttributedCOGS:           t.AttributedCOGS,
		AttributedPaymentFees:    t.AttributedPaymentFees,
		AttributedTax:            t.AttributedTax,
		FirstTimeCustomerOrders:  t.FirstTimeCustomerOrders,
		FirstTimeCustomerRevenue: t.FirstTimeCustomerRevenue,
	}

	vat := t.AttributedTax
	if ignoreVAT {
		vat = 0
	}
	b.NetProfit = t.AttributedRevenue - vat - t.AttributedCOGS - t.AttributedPaymentFees

	if !level.HasSpend() {
		return b
	}

	b.NetProfit -= t.AdSpend
	b.AdSpend = float64Ptr(t.AdSpend)
	b.Impressions = int64Ptr(t.Impressions)
	b.Clicks = int64Ptr(t.Clicks)
	b.Conversions = int64Ptr(t.Conversions)
	b.ROAS = float64Ptr(safeDiv(t.AttributedRevenue, t.AdSpend))
	b.FirstTimeCustomerROAS = float64Ptr(safeDiv(t.FirstTimeCustomerRevenue, t.AdSpend))

	if level == models.LevelAd {
		b.CPC = float64Ptr(safeDiv(t.AdSpend, float64(t.Clicks)))
		b.CTR = float64Ptr(safeDiv(float64(t.Clicks)*100, float64(t.Impressions)))
	}
	return b
}

// sortByRevenue orders rows by attributed revenue, highest first, keeping
// input order among ties.
func sortByRevenue(rows []JoinedRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Totals.AttributedRevenue > rows[j].Totals.AttributedRevenue
	})
}

func safeDiv(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}

func float64Ptr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64       { return &v }
