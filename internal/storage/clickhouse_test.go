package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTouchpointQuery(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		channel      string
		wantArgs     []any
		wantChannel  bool
		wantOrdering string
	}{
		{
			name:         "all channels",
			wantArgs:     []any{"shop_1", start, end},
			wantOrdering: "ORDER BY order_id, event_timestamp",
		},
		{
			name:         "single channel",
			channel:      "meta-ads",
			wantArgs:     []any{"shop_1", start, end, "meta-ads"},
			wantChannel:  true,
			wantOrdering: "ORDER BY order_id, event_timestamp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildTouchpointQuery("analytics.order_touchpoints", "shop_1", start, end, tt.channel)

			assert.Equal(t, tt.wantArgs, args)
			assert.Contains(t, query, "FROM analytics.order_touchpoints\n")
			assert.Contains(t, query, "WHERE shop_id = ?\n\tAND event_timestamp >= ?\n\tAND event_timestamp < ?")
			assert.Equal(t, tt.wantChannel, strings.Contains(query, "AND channel = ?"))
			assert.True(t, strings.HasSuffix(query, tt.wantOrdering))
			assert.Equal(t, len(args), strings.Count(query, "?"))
		})
	}
}

func TestBuildSpendQuery(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	query, args := buildSpendQuery("ad_spend", "shop_2", start, end, "google-ads")

	require.Len(t, args, 4)
	assert.Equal(t, "google-ads", args[3])
	assert.Contains(t, query, "toFloat64(spend) AS spend")
	assert.Contains(t, query, "AND date_time >= ?\n\tAND date_time < ?")
	assert.True(t, strings.HasSuffix(query, "ORDER BY date_time, channel"))
}

func TestClickHouseTables_Qualify(t *testing.T) {
	assert.Equal(t, "order_touchpoints", ClickHouseTables{}.qualify("order_touchpoints"))
	assert.Equal(t, "analytics.ad_spend", ClickHouseTables{Database: "analytics"}.qualify("ad_spend"))
}

func TestRowsToModel(t *testing.T) {
	ts := time.Date(2024, time.January, 3, 10, 0, 0, 0, time.UTC)

	tp := touchpointRow{
		OrderID:                "1001",
		Channel:                "meta-ads",
		AdPK:                   5,
		AdSetPK:                50,
		AdCampaignPK:           500,
		AdID:                   "ad_5",
		EventTimestamp:         ts,
		TotalPrice:             120,
		IsLastPaidEventOverall: true,
		HasAnyPaidEvents:       true,
		IsPaidChannel:          true,
	}.toModel()
	assert.Equal(t, "1001", tp.OrderID)
	assert.Equal(t, int64(500), tp.AdCampaignPK)
	assert.Equal(t, "ad_5", tp.AdID)
	assert.Equal(t, ts, tp.EventTimestamp)
	assert.True(t, tp.IsLastPaidEventOverall)
	assert.True(t, tp.IsPaidChannel)
	assert.False(t, tp.IsFirstEventOverall)

	rec := spendRow{Channel: "meta-ads", AdPK: 5, Spend: 12.5, Clicks: 3, DateTime: ts}.toModel()
	assert.Equal(t, int64(5), rec.AdPK)
	assert.InDelta(t, 12.5, rec.Spend, 1e-9)
	assert.Equal(t, int64(3), rec.Clicks)
	assert.Equal(t, ts, rec.DateTime)
}
