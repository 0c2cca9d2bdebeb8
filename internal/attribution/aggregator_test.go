package attribution

import (
	"testing"
	"time"

	"github.com/radiusdt/vector-attribution/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weightAll(w float64, tps ...models.TouchpointEvent) []WeightedTouchpoint {
	out := make([]WeightedTouchpoint, len(tps))
	for i := range tps {
		out[i] = WeightedTouchpoint{Touchpoint: &tps[i], Weight: w}
	}
	return out
}

func TestAggregateTouchpoints_ChannelLevel(t *testing.T) {
	ftc := func(tp *models.TouchpointEvent) {
		tp.IsFirstCustomerOrder = true
		tp.TotalCOGS = 40
		tp.PaymentFees = 3
		tp.TotalTax = 19
	}
	g := AggregateTouchpoints(models.LevelChannel, "ignored", weightAll(0.5,
		touch("o1", "meta-ads", 1, ftc),
		touch("o2", "meta-ads", 2),
		touch("o2", "meta-ads", 2),
		touch("o3", "google-ads", 0),
	))

	require.Equal(t, 2, g.Len())
	meta, ok := g.Get(models.GroupKey{Channel: "meta-ads"})
	require.True(t, ok)
	assert.InDelta(t, 1.5, meta.Totals.AttributedOrders, 1e-9)
	assert.InDelta(t, 150, meta.Totals.AttributedRevenue, 1e-9)
	assert.InDelta(t, 20, meta.Totals.AttributedCOGS, 1e-9)
	assert.InDelta(t, 1.5, meta.Totals.AttributedPaymentFees, 1e-9)
	assert.InDelta(t, 9.5, meta.Totals.AttributedTax, 1e-9)
	assert.InDelta(t, 0.5, meta.Totals.FirstTimeCustomerOrders, 1e-9)
	assert.InDelta(t, 50, meta.Totals.FirstTimeCustomerRevenue, 1e-9)
	assert.Equal(t, int64(2), meta.Totals.DistinctOrdersTouched)

	assert.Equal(t, "meta-ads", g.Groups()[0].Key.Channel)
	assert.Equal(t, "google-ads", g.Groups()[1].Key.Channel)
}

func TestAggregateTouchpoints_CampaignLevelFiltersChannel(t *testing.T) {
	withCampaign := func(name string) func(*models.TouchpointEvent) {
		return func(tp *models.TouchpointEvent) { tp.Campaign = name }
	}
	g := AggregateTouchpoints(models.LevelCampaign, "email", weightAll(1,
		touch("o1", "email", 0, withCampaign("spring_sale")),
		touch("o2", "email", 0, withCampaign("spring_sale")),
		touch("o3", "email", 0, withCampaign("newsletter")),
		touch("o4", "organic", 0, withCampaign("spring_sale")),
	))

	require.Equal(t, 2, g.Len())
	spring, ok := g.Get(models.GroupKey{Channel: "email", Campaign: "spring_sale"})
	require.True(t, ok)
	assert.InDelta(t, 2, spring.Totals.AttributedOrders, 1e-9)

	_, ok = g.Get(models.GroupKey{Channel: "organic", Campaign: "spring_sale"})
	assert.False(t, ok)
}

func TestAggregateTouchpoints_AdLevelWithoutIdentifier(t *testing.T) {
	g := AggregateTouchpoints(models.LevelAd, "meta-ads", weightAll(1,
		touch("o1", "meta-ads", 0),
		touch("o2", "meta-ads", 0),
		touch("o3", "meta-ads", 7, func(tp *models.TouchpointEvent) { tp.AdID = "ad_7" }),
	))

	require.Equal(t, 2, g.Len())
	notSet, ok := g.Get(models.GroupKey{Channel: "meta-ads"})
	require.True(t, ok)
	assert.Equal(t, int64(2), notSet.Totals.DistinctOrdersTouched)

	ad, ok := g.Get(models.GroupKey{Channel: "meta-ads", AdPK: 7, AdSetPK: 70, AdCampaignPK: 700})
	require.True(t, ok)
	assert.Equal(t, "ad_7", ad.Key.AdID)
}

func TestAggregateSpend(t *testing.T) {
	records := []models.SpendRecord{
		{Channel: "meta-ads", AdPK: 1, AdSetPK: 10, AdCampaignPK: 100, Spend: 30, Impressions: 1000, Clicks: 10, Conversions: 1},
		{Channel: "meta-ads", AdPK: 1, AdSetPK: 10, AdCampaignPK: 100, AdID: "ad_1", Spend: 20, Impressions: 500, Clicks: 5},
		{Channel: "google-ads", AdPK: 2, AdSetPK: 20, AdCampaignPK: 200, Spend: 50},
	}

	t.Run("channel level sums across channels", func(t *testing.T) {
		g := AggregateSpend(models.LevelChannel, "", records)
		require.Equal(t, 2, g.Len())
		meta, ok := g.Get(models.GroupKey{Channel: "meta-ads"})
		require.True(t, ok)
		assert.InDelta(t, 50, meta.Totals.AdSpend, 1e-9)
		assert.Equal(t, int64(1500), meta.Totals.Impressions)
		assert.Equal(t, int64(15), meta.Totals.Clicks)
		assert.Equal(t, int64(1), meta.Totals.Conversions)
	})

	t.Run("ad level filters channel and coalesces ids", func(t *testing.T) {
		g := AggregateSpend(models.LevelAd, "meta-ads", records)
		require.Equal(t, 1, g.Len())
		grp := g.Groups()[0]
		assert.Equal(t, "ad_1", grp.Key.AdID)
		assert.InDelta(t, 50, grp.Totals.AdSpend, 1e-9)
	})

	t.Run("campaign level has no spend", func(t *testing.T) {
		g := AggregateSpend(models.LevelCampaign, "meta-ads", records)
		assert.Equal(t, 0, g.Len())
	})
}

func TestFilterTouchpoints_Window(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

	at := func(ts time.Time) models.TouchpointEvent {
		return models.TouchpointEvent{OrderID: ts.String(), EventTimestamp: ts}
	}
	in := filterTouchpoints([]models.TouchpointEvent{
		at(start.Add(-time.Nanosecond)),
		at(start),
		at(end.Add(-time.Second)),
		at(end),
	}, start, end)

	require.Len(t, in, 2)
	assert.Equal(t, start, in[0].EventTimestamp)
	assert.Equal(t, end.Add(-time.Second), in[1].EventTimestamp)
}

func TestGrouping_NilSafe(t *testing.T) {
	var g *Grouping
	assert.Equal(t, 0, g.Len())
	assert.Nil(t, g.Groups())
	_, ok := g.Get(models.GroupKey{Channel: "x"})
	assert.False(t, ok)
}
