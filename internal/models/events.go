package models

import "time"

// TouchpointEvent is one marketing interaction contributing to an order.
//
// Money fields belong to the order and are repeated on every touchpoint of it.
// The boolean flags are computed over the order's whole lifetime, not the query window.
type TouchpointEvent struct {
	OrderID  string `json:"order_id"`
	Channel  string `json:"channel"`
	Campaign string `json:"campaign,omitempty"`

	AdCampaignID string `json:"ad_campaign_id,omitempty"`
	AdSetID      string `json:"ad_set_id,omitempty"`
	AdID         string `json:"ad_id,omitempty"`
	AdCampaignPK int64  `json:"ad_campaign_pk,omitempty"`
	AdSetPK      int64  `json:"ad_set_pk,omitempty"`
	AdPK         int64  `json:"ad_pk,omitempty"`

	EventTimestamp time.Time `json:"event_timestamp"`

	TotalPrice  float64 `json:"total_price"`
	TotalCOGS   float64 `json:"total_cogs"`
	PaymentFees float64 `json:"payment_fees"`
	TotalTax    float64 `json:"total_tax"`

	IsFirstEventOverall    bool `json:"is_first_event_overall"`
	IsLastEventOverall     bool `json:"is_last_event_overall"`
	IsLastPaidEventOverall bool `json:"is_last_paid_event_overall"`
	HasAnyPaidEvents       bool `json:"has_any_paid_events"`
	IsPaidChannel          bool `json:"is_paid_channel"`
	IsFirstCustomerOrder   bool `json:"is_first_customer_order"`
}

// AdHierarchy is the (ad, ad set, campaign) surrogate key triple. The zero
// value is the shared bucket for touchpoints without any ad hierarchy.
type AdHierarchy struct {
	AdPK         int64
	AdSetPK      int64
	AdCampaignPK int64
}

// Hierarchy returns the touchpoint's ad hierarchy triple.
func (t *TouchpointEvent) Hierarchy() AdHierarchy {
	return AdHierarchy{AdPK: t.AdPK, AdSetPK: t.AdSetPK, AdCampaignPK: t.AdCampaignPK}
}

// HasAdIdentifier reports whether the touchpoint carries any ad hierarchy id.
func (t *TouchpointEvent) HasAdIdentifier() bool {
	return t.AdPK != 0 || t.AdSetPK != 0 || t.AdCampaignPK != 0 ||
		t.AdID != "" || t.AdSetID != "" || t.AdCampaignID != ""
}

// SpendRecord is one ad spend observation.
type SpendRecord struct {
	Channel      string `json:"channel"`
	AdCampaignID string `json:"ad_campaign_id,omitempty"`
	AdSetID      string `json:"ad_set_id,omitempty"`
	AdID         string `json:"ad_id,omitempty"`
	AdCampaignPK int64  `json:"ad_campaign_pk,omitempty"`
	AdSetPK      int64  `json:"ad_set_pk,omitempty"`
	AdPK         int64  `json:"ad_pk,omitempty"`

	Spend       float64 `json:"spend"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`

	DateTime time.Time `json:"date_time"`
}

// ShopSettings holds per-shop settings consumed by the engine.
type ShopSettings struct {
	ShopID    string `json:"shop_id"`
	IgnoreVAT bool   `json:"ignore_vat"`
}

// InWindow reports whether t falls in [start, endExclusive).
func InWindow(t, start, endExclusive time.Time) bool {
	return !t.Before(start) && t.Before(endExclusive)
}
