package attribution

import (
	"testing"

	"github.com/radiusdt/vector-attribution/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinSpend_FullOuterJoin(t *testing.T) {
	attributed := AggregateTouchpoints(models.LevelAd, "meta-ads", weightAll(1,
		touch("o1", "meta-ads", 1),
		touch("o2", "meta-ads", 2),
	))
	spent := AggregateSpend(models.LevelAd, "meta-ads", []models.SpendRecord{
		{Channel: "meta-ads", AdPK: 2, AdSetPK: 20, AdCampaignPK: 200, AdID: "ad_2", Spend: 25, Clicks: 5, Impressions: 100},
		{Channel: "meta-ads", AdPK: 3, AdSetPK: 30, AdCampaignPK: 300, AdID: "ad_3", Spend: 40},
	})

	rows := JoinSpend(attributed, spent)
	require.Len(t, rows, 3)

	// attribution only
	assert.Equal(t, int64(1), rows[0].Key.AdPK)
	assert.InDelta(t, 100, rows[0].Totals.AttributedRevenue, 1e-9)
	assert.Zero(t, rows[0].Totals.AdSpend)

	// both sides
	assert.Equal(t, int64(2), rows[1].Key.AdPK)
	assert.Equal(t, "ad_2", rows[1].Key.AdID)
	assert.InDelta(t, 100, rows[1].Totals.AttributedRevenue, 1e-9)
	assert.InDelta(t, 25, rows[1].Totals.AdSpend, 1e-9)
	assert.Equal(t, int64(5), rows[1].Totals.Clicks)

	// spend only
	assert.Equal(t, int64(3), rows[2].Key.AdPK)
	assert.Zero(t, rows[2].Totals.AttributedRevenue)
	assert.Zero(t, rows[2].Totals.DistinctOrdersTouched)
	assert.InDelta(t, 40, rows[2].Totals.AdSpend, 1e-9)
}

func TestJoinSpend_Empty(t *testing.T) {
	assert.Empty(t, JoinSpend(newGrouping(), newGrouping()))
	assert.Empty(t, JoinSpend(nil, nil))
}

func TestDeriveMetrics_JanuaryChannelScenario(t *testing.T) {
	m := deriveMetrics(models.LevelChannel, Totals{
		AttributedOrders:         50,
		AttributedRevenue:        5000,
		FirstTimeCustomerRevenue: 2000,
		AdSpend:                  1000,
		Impressions:              100000,
		Clicks:                   2000,
	}, false)

	require.NotNil(t, m.ROAS)
	assert.InDelta(t, 5.0, *m.ROAS, 1e-9)
	require.NotNil(t, m.FirstTimeCustomerROAS)
	assert.InDelta(t, 2.0, *m.FirstTimeCustomerROAS, 1e-9)
	require.NotNil(t, m.AdSpend)
	assert.InDelta(t, 1000, *m.AdSpend, 1e-9)
	assert.Nil(t, m.CPC)
	assert.Nil(t, m.CTR)
}

func TestDeriveMetrics_NetProfit(t *testing.T) {
	totals := Totals{
		AttributedRevenue:     100,
		AttributedTax:         20,
		AttributedCOGS:        30,
		AttributedPaymentFees: 5,
		AdSpend:               10,
	}

	tests := []struct {
		name      string
		level     models.AggregationLevel
		ignoreVAT bool
		want      float64
	}{
		{name: "channel level with VAT", level: models.LevelChannel, want: 35},
		{name: "channel level ignoring VAT", level: models.LevelChannel, ignoreVAT: true, want: 55},
		{name: "ad level with VAT", level: models.LevelAd, want: 35},
		{name: "campaign level has no spend", level: models.LevelCampaign, want: 45},
		{name: "campaign level ignoring VAT", level: models.LevelCampaign, ignoreVAT: true, want: 65},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := deriveMetrics(tt.level, totals, tt.ignoreVAT)
			assert.InDelta(t, tt.want, m.NetProfit, 1e-9)
			assert.InDelta(t, 20, m.AttributedTax, 1e-9)
		})
	}
}

func TestDeriveMetrics_LevelFields(t *testing.T) {
	totals := Totals{AttributedRevenue: 300, AdSpend: 60, Clicks: 30, Impressions: 1200, Conversions: 4}

	campaign := deriveMetrics(models.LevelCampaign, totals, false)
	assert.Nil(t, campaign.AdSpend)
	assert.Nil(t, campaign.Impressions)
	assert.Nil(t, campaign.Clicks)
	assert.Nil(t, campaign.Conversions)
	assert.Nil(t, campaign.ROAS)
	assert.Nil(t, campaign.FirstTimeCustomerROAS)

	ad := deriveMetrics(models.LevelAd, totals, false)
	require.NotNil(t, ad.CPC)
	require.NotNil(t, ad.CTR)
	require.NotNil(t, ad.ROAS)
	assert.InDelta(t, 2.0, *ad.CPC, 1e-9)
	assert.InDelta(t, 2.5, *ad.CTR, 1e-9)
	assert.InDelta(t, 5.0, *ad.ROAS, 1e-9)
	assert.Equal(t, int64(4), *ad.Conversions)
}

func TestDeriveMetrics_ZeroDenominators(t *testing.T) {
	m := deriveMetrics(models.LevelAd, Totals{AttributedRevenue: 500, FirstTimeCustomerRevenue: 100}, false)

	require.NotNil(t, m.ROAS)
	assert.Zero(t, *m.ROAS)
	assert.Zero(t, *m.FirstTimeCustomerROAS)
	assert.Zero(t, *m.CPC)
	assert.Zero(t, *m.CTR)
}

func TestSortByRevenue_Stable(t *testing.T) {
	rows := []JoinedRow{
		{Key: models.GroupKey{Channel: "a"}, Totals: Totals{AttributedRevenue: 10}},
		{Key: models.GroupKey{Channel: "b"}, Totals: Totals{AttributedRevenue: 30}},
		{Key: models.GroupKey{Channel: "c"}, Totals: Totals{AttributedRevenue: 10}},
		{Key: models.GroupKey{Channel: "d"}, Totals: Totals{AttributedRevenue: 0}},
	}
	sortByRevenue(rows)

	var got []string
	for _, r := range rows {
		got = append(got, r.Key.Channel)
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, got)
}
