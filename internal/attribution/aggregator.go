package attribution

import (
	"time"

	"github.com/radiusdt/vector-attribution/internal/models"
)

// Totals are the additive components of a group's metrics. Derived ratios are
// never stored here; they are computed from these by deriveMetrics.
type Totals struct {
	AttributedOrders         float64
	AttributedRevenue        float64
	AttributedCOGS           float64
	AttributedPaymentFees    float64
	AttributedTax            float64
	FirstTimeCustomerOrders  float64
	FirstTimeCustomerRevenue float64
	DistinctOrdersTouched    int64

	AdSpend     float64
	Impressions int64
	Clicks      int64
	Conversions int64
}

// absorbChild folds a child's totals into a parent. Order counts are taken as
// the maximum since one order may touch several children.
func (t *Totals) absorbChild(c Totals) {
	t.AttributedOrders += c.AttributedOrders
	t.AttributedRevenue += c.AttributedRevenue
	t.AttributedCOGS += c.AttributedCOGS
	t.AttributedPaymentFees += c.AttributedPaymentFees
	t.AttributedTax += c.AttributedTax
	t.FirstTimeCustomerOrders += c.FirstTimeCustomerOrders
	t.FirstTimeCustomerRevenue += c.FirstTimeCustomerRevenue
	t.AdSpend += c.AdSpend
	t.Impressions += c.Impressions
	t.Clicks += c.Clicks
	t.Conversions += c.Conversions
	if c.DistinctOrdersTouched > t.DistinctOrdersTouched {
		t.DistinctOrdersTouched = c.DistinctOrdersTouched
	}
}

// Group is one aggregated row.
type Group struct {
	Key    models.GroupKey
	Totals Totals

	orders map[string]struct{}
}

// Grouping is an insertion-ordered set of groups.
type Grouping struct {
	groups []*Group
	index  map[models.GroupIdentity]*Group
}

func newGrouping() *Grouping {
	return &Grouping{index: make(map[models.GroupIdentity]*Group)}
}

// Groups returns the groups in first-seen order.
func (g *Grouping) Groups() []*Group {
	if g == nil {
		return nil
	}
	return g.groups
}

// Len returns the number of groups.
func (g *Grouping) Len() int {
	if g == nil {
		return 0
	}
	return len(g.groups)
}

// Get returns the group for key's identity.
func (g *Grouping) Get(key models.GroupKey) (*Group, bool) {
	if g == nil {
		return nil, false
	}
	grp, ok := g.index[key.Identity()]
	return grp, ok
}

func (g *Grouping) upsert(key models.GroupKey) *Group {
	id := key.Identity()
	grp, ok := g.index[id]
	if !ok {
		grp = &Group{Key: key}
		g.index[id] = grp
		g.groups = append(g.groups, grp)
		return grp
	}
	coalesceKey(&grp.Key, key)
	return grp
}

// coalesceKey fills display ids missing on dst from src.
func coalesceKey(dst *models.GroupKey, src models.GroupKey) {
	if dst.AdCampaignID == "" {
		dst.AdCampaignID = src.AdCampaignID
	}
	if dst.AdSetID == "" {
		dst.AdSetID = src.AdSetID
	}
	if dst.AdID == "" {
		dst.AdID = src.AdID
	}
}

// AggregateTouchpoints groups weighted touchpoints by the key of level and sums
// their credit. At campaign and ad level only touchpoints on channel are kept.
// At ad level, touchpoints without any ad identifier collect under the zero
// hierarchy key, which the hierarchy organizer renders as "Not Set".
func AggregateTouchpoints(level models.AggregationLevel, channel string, weighted []WeightedTouchpoint) *Grouping {
	g := newGrouping()
	for _, wt := range weighted {
		tp := wt.Touchpoint
		key, ok := touchpointKey(level, channel, tp)
		if !ok {
			continue
		}

		grp := g.upsert(key)
		w := wt.Weight
		grp.Totals.AttributedOrders += w
		grp.Totals.AttributedRevenue += w * tp.TotalPrice
		grp.Totals.AttributedCOGS += w * tp.TotalCOGS
		grp.Totals.AttributedPaymentFees += w * tp.PaymentFees
		grp.Totals.AttributedTax += w * tp.TotalTax
		if tp.IsFirstCustomerOrder {
			grp.Totals.FirstTimeCustomerOrders += w
			grp.Totals.FirstTimeCustomerRevenue += w * tp.TotalPrice
		}

		if grp.orders == nil {
			grp.orders = make(map[string]struct{})
		}
		grp.orders[tp.OrderID] = struct{}{}
		grp.Totals.DistinctOrdersTouched = int64(len(grp.orders))
	}
	return g
}

// AggregateSpend groups spend records by the key of level and sums them.
// Campaign level has no spend and yields an empty grouping.
func AggregateSpend(level models.AggregationLevel, channel string, records []models.SpendRecord) *Grouping {
	g := newGrouping()
	if !level.HasSpend() {
		return g
	}
	for i := range records {
		rec := &records[i]
		key, ok := spendKey(level, channel, rec)
		if !ok {
			continue
		}
		grp := g.upsert(key)
		grp.Totals.AdSpend += rec.Spend
		grp.Totals.Impressions += rec.Impressions
		grp.Totals.Clicks += rec.Clicks
		grp.Totals.Conversions += rec.Conversions
	}
	return g
}

func touchpointKey(level models.AggregationLevel, channel string, tp *models.TouchpointEvent) (models.GroupKey, bool) {
	switch level {
	case models.LevelChannel:
		return models.GroupKey{Channel: tp.Channel}, true
	case models.LevelCampaign:
		if tp.Channel != channel {
			return models.GroupKey{}, false
		}
		return models.GroupKey{Channel: tp.Channel, Campaign: tp.Campaign}, true
	case models.LevelAd:
		if tp.Channel != channel {
			return models.GroupKey{}, false
		}
		if !tp.HasAdIdentifier() {
			return models.GroupKey{Channel: tp.Channel}, true
		}
		return models.GroupKey{
			Channel:      tp.Channel,
			AdCampaignPK: tp.AdCampaignPK,
			AdSetPK:      tp.AdSetPK,
			AdPK:         tp.AdPK,
			AdCampaignID: tp.AdCampaignID,
			AdSetID:      tp.AdSetID,
			AdID:         tp.AdID,
		}, true
	}
	return models.GroupKey{}, false
}

func spendKey(level models.AggregationLevel, channel string, rec *models.SpendRecord) (models.GroupKey, bool) {
	switch level {
	case models.LevelChannel:
		return models.GroupKey{Channel: rec.Channel}, true
	case models.LevelAd:
		if rec.Channel != channel {
			return models.GroupKey{}, false
		}
		return models.GroupKey{
			Channel:      rec.Channel,
			AdCampaignPK: rec.AdCampaignPK,
			AdSetPK:      rec.AdSetPK,
			AdPK:         rec.AdPK,
			AdCampaignID: rec.AdCampaignID,
			AdSetID:      rec.AdSetID,
			AdID:         rec.AdID,
		}, true
	}
	return models.GroupKey{}, false
}

// filterTouchpoints keeps touchpoints whose timestamp falls in [start, endExclusive).
func filterTouchpoints(touchpoints []models.TouchpointEvent, start, endExclusive time.Time) []models.TouchpointEvent {
	out := make([]models.TouchpointEvent, 0, len(touchpoints))
	for _, tp := range touchpoints {
		if models.InWindow(tp.EventTimestamp, start, endExclusive) {
			out = append(out, tp)
		}
	}
	return out
}

// filterSpend keeps spend records whose date falls in [start, endExclusive).
func filterSpend(records []models.SpendRecord, start, endExclusive time.Time) []models.SpendRecord {
	out := make([]models.SpendRecord, 0, len(records))
	for _, rec := range records {
		if models.InWindow(rec.DateTime, start, endExclusive) {
			out = append(out, rec)
		}
	}
	return out
}
