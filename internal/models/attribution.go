package models

import "fmt"

// AttributionModel is the rule used to distribute order credit across touchpoints.
type AttributionModel string

const (
	ModelFirstClick    AttributionModel = "first_click"
	ModelLastClick     AttributionModel = "last_click"
	ModelLastPaidClick AttributionModel = "last_paid_click"
	ModelLinearAll     AttributionModel = "linear_all"
	ModelLinearPaid    AttributionModel = "linear_paid"
)

// AttributionModels lists every supported model in display order.
var AttributionModels = []AttributionModel{
	ModelFirstClick,
	ModelLastClick,
	ModelLastPaidClick,
	ModelLinearAll,
	ModelLinearPaid,
}

// Valid reports whether m is one of the known models.
func (m AttributionModel) Valid() bool {
	switch m {
	case ModelFirstClick, ModelLastClick, ModelLastPaidClick, ModelLinearAll, ModelLinearPaid:
		return true
	}
	return false
}

// IsLinear reports whether the model splits credit fractionally.
func (m AttributionModel) IsLinear() bool {
	return m == ModelLinearAll || m == ModelLinearPaid
}

// AggregationLevel is the granularity results are grouped at.
type AggregationLevel string

const (
	LevelChannel  AggregationLevel = "channel"
	LevelCampaign AggregationLevel = "campaign"
	LevelAd       AggregationLevel = "ad"
)

// AggregationLevels lists every supported level.
var AggregationLevels = []AggregationLevel{LevelChannel, LevelCampaign, LevelAd}

// Valid reports whether l is one of the known levels.
func (l AggregationLevel) Valid() bool {
	switch l {
	case LevelChannel, LevelCampaign, LevelAd:
		return true
	}
	return false
}

// RequiresChannel reports whether requests at this level must name a channel.
func (l AggregationLevel) RequiresChannel() bool {
	return l == LevelCampaign || l == LevelAd
}

// HasSpend reports whether ad spend is part of results at this level.
// Campaign level covers non-paid channels, which have no spend concept.
func (l AggregationLevel) HasSpend() bool {
	return l != LevelCampaign
}

// GroupKey identifies one output row.
//
// Identity is Channel plus Campaign at campaign level, or Channel plus the three
// surrogate keys at ad level. The platform string ids are carried for display only.
type GroupKey struct {
	Channel      string `json:"channel"`
	Campaign     string `json:"campaign,omitempty"`
	AdCampaignPK int64  `json:"ad_campaign_pk,omitempty"`
	AdSetPK      int64  `json:"ad_set_pk,omitempty"`
	AdPK         int64  `json:"ad_pk,omitempty"`
	AdCampaignID string `json:"ad_campaign_id,omitempty"`
	AdSetID      string `json:"ad_set_id,omitempty"`
	AdID         string `json:"ad_id,omitempty"`
}

// Identity returns the comparable part of the key used for grouping and joining.
func (k GroupKey) Identity() GroupIdentity {
	return GroupIdentity{
		Channel:      k.Channel,
		Campaign:     k.Campaign,
		AdCampaignPK: k.AdCampaignPK,
		AdSetPK:      k.AdSetPK,
		AdPK:         k.AdPK,
	}
}

// String returns a compact human readable representation.
func (k GroupKey) String() string {
	switch {
	case k.Campaign != "":
		return fmt.Sprintf("%s/%s", k.Channel, k.Campaign)
	case k.AdCampaignPK != 0 || k.AdSetPK != 0 || k.AdPK != 0:
		return fmt.Sprintf("%s/%d/%d/%d", k.Channel, k.AdCampaignPK, k.AdSetPK, k.AdPK)
	default:
		return k.Channel
	}
}

// GroupIdentity is the map key form of GroupKey.
type GroupIdentity struct {
	Channel      string
	Campaign     string
	AdCampaignPK int64
	AdSetPK      int64
	AdPK         int64
}

// MetricBundle is the output per group. Pointer fields are only set at the
// levels that define them and are omitted from JSON otherwise.
type MetricBundle struct {
	AttributedOrders         float64 `json:"attributed_orders"`
	AttributedRevenue        float64 `json:"attributed_revenue"`
	DistinctOrdersTouched    int64   `json:"distinct_orders_touched"`
	AttributedCOGS           float64 `json:"attributed_cogs"`
	AttributedPaymentFees    float64 `json:"attributed_payment_fees"`
	AttributedTax            float64 `json:"attributed_tax"`
	NetProfit                float64 `json:"net_profit"`
	FirstTimeCustomerOrders  float64 `json:"first_time_customer_orders"`
	FirstTimeCustomerRevenue float64 `json:"first_time_customer_revenue"`

	AdSpend               *float64 `json:"ad_spend,omitempty"`
	Impressions           *int64   `json:"impressions,omitempty"`
	Clicks                *int64   `json:"clicks,omitempty"`
	Conversions           *int64   `json:"conversions,omitempty"`
	ROAS                  *float64 `json:"roas,omitempty"`
	CPC                   *float64 `json:"cpc,omitempty"`
	CTR                   *float64 `json:"ctr,omitempty"`
	FirstTimeCustomerROAS *float64 `json:"first_time_customer_roas,omitempty"`
}

// GroupedMetricBundle is one flat result row.
type GroupedMetricBundle struct {
	Key     GroupKey     `json:"key"`
	Metrics MetricBundle `json:"metrics"`
}
