package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/radiusdt/vector-attribution/internal/models"
)

// touchpointRow is the warehouse shape of a touchpoint.
type touchpointRow struct {
	OrderID                string    `ch:"order_id"`
	Channel                string    `ch:"channel"`
	Campaign               string    `ch:"campaign"`
	AdCampaignID           string    `ch:"ad_campaign_id"`
	AdSetID                string    `ch:"ad_set_id"`
	AdID                   string    `ch:"ad_id"`
	AdCampaignPK           int64     `ch:"ad_campaign_pk"`
	AdSetPK                int64     `ch:"ad_set_pk"`
	AdPK                   int64     `ch:"ad_pk"`
	EventTimestamp         time.Time `ch:"event_timestamp"`
	TotalPrice             float64   `ch:"total_price"`
	TotalCOGS              float64   `ch:"total_cogs"`
	PaymentFees            float64   `ch:"payment_fees"`
	TotalTax               float64   `ch:"total_tax"`
	IsFirstEventOverall    bool      `ch:"is_first_event_overall"`
	IsLastEventOverall     bool      `ch:"is_last_event_overall"`
	IsLastPaidEventOverall bool      `ch:"is_last_paid_event_overall"`
	HasAnyPaidEvents       bool      `ch:"has_any_paid_events"`
	IsPaidChannel          bool      `ch:"is_paid_channel"`
	IsFirstCustomerOrder   bool      `ch:"is_first_customer_order"`
}

func (r touchpointRow) toModel() models.TouchpointEvent {
	return models.TouchpointEvent{
		OrderID:                r.OrderID,
		Channel:                r.Channel,
		Campaign:               r.Campaign,
		AdCampaignID:           r.AdCampaignID,
		AdSetID:                r.AdSetID,
		AdID:                   r.AdID,
		AdCampaignPK:           r.AdCampaignPK,
		AdSetPK:                r.AdSetPK,
		AdPK:                   r.AdPK,
		EventTimestamp:         r.EventTimestamp,
		TotalPrice:             r.TotalPrice,
		TotalCOGS:              r.TotalCOGS,
		PaymentFees:            r.PaymentFees,
		TotalTax:               r.TotalTax,
		IsFirstEventOverall:    r.IsFirstEventOverall,
		IsLastEventOverall:     r.IsLastEventOverall,
		IsLastPaidEventOverall: r.IsLastPaidEventOverall,
		HasAnyPaidEvents:       r.HasAnyPaidEvents,
		IsPaidChannel:          r.IsPaidChannel,
		IsFirstCustomerOrder:   r.IsFirstCustomerOrder,
	}
}

// spendRow is the warehouse shape of a spend record.
type spendRow struct {
	Channel      string    `ch:"channel"`
	AdCampaignID string    `ch:"ad_campaign_id"`
	AdSetID      string    `ch:"ad_set_id"`
	AdID         string    `ch:"ad_id"`
	AdCampaignPK int64     `ch:"ad_campaign_pk"`
	AdSetPK      int64     `ch:"ad_set_pk"`
	AdPK         int64     `ch:"ad_pk"`
	Spend        float64   `ch:"spend"`
	Impressions  int64     `ch:"impressions"`
	Clicks       int64     `ch:"clicks"`
	Conversions  int64     `ch:"conversions"`
	DateTime     time.Time `ch:"date_time"`
}

func (r spendRow) toModel() models.SpendRecord {
	return models.SpendRecord{
		Channel:      r.Channel,
		AdCampaignID: r.AdCampaignID,
		AdSetID:      r.AdSetID,
		AdID:         r.AdID,
		AdCampaignPK: r.AdCampaignPK,
		AdSetPK:      r.AdSetPK,
		AdPK:         r.AdPK,
		Spend:        r.Spend,
		Impressions:  r.Impressions,
		Clicks:       r.Clicks,
		Conversions:  r.Conversions,
		DateTime:     r.DateTime,
	}
}

// ClickHouseTables names the warehouse tables read by the stores.
type ClickHouseTables struct {
	Database    string
	Touchpoints string
	Spend       string
}

func (t ClickHouseTables) qualify(table string) string {
	if t.Database == "" {
		return table
	}
	return t.Database + "." + table
}

// ClickHouseEventStore implements TouchpointStore and SpendStore on ClickHouse.
type ClickHouseEventStore struct {
	conn   driver.Conn
	tables ClickHouseTables
}

// NewClickHouseEventStore creates a store reading from the given tables.
func NewClickHouseEventStore(conn driver.Conn, tables ClickHouseTables) *ClickHouseEventStore {
	return &ClickHouseEventStore{conn: conn, tables: tables}
}

// FetchTouchpoints returns the shop's touchpoints in [start, endExclusive), narrowed to channel when set.
func (s *ClickHouseEventStore) FetchTouchpoints(ctx context.Context, shopID string, start, endExclusive time.Time, channel string) ([]models.TouchpointEvent, error) {
	query, args := buildTouchpointQuery(s.tables.qualify(s.tables.Touchpoints), shopID, start, endExclusive, channel)

	var rows []touchpointRow
	if err := s.conn.Select(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch touchpoints: %w", err)
	}

	result := make([]models.TouchpointEvent, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toModel())
	}
	return result, nil
}

// FetchSpend returns the shop's spend records in [start, endExclusive), narrowed to channel when set.
func (s *ClickHouseEventStore) FetchSpend(ctx context.Context, shopID string, start, endExclusive time.Time, channel string) ([]models.SpendRecord, error) {
	query, args := buildSpendQuery(s.tables.qualify(s.tables.Spend), shopID, start, endExclusive, channel)

	var rows []spendRow
	if err := s.conn.Select(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch spend: %w", err)
	}

	result := make([]models.SpendRecord, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toModel())
	}
	return result, nil
}

const touchpointColumns = `
	toString(order_id) AS order_id,
	channel,
	ifNull(campaign, '') AS campaign,
	ifNull(ad_campaign_id, '') AS ad_campaign_id,
	ifNull(ad_set_id, '') AS ad_set_id,
	ifNull(ad_id, '') AS ad_id,
	toInt64(ifNull(ad_campaign_pk, 0)) AS ad_campaign_pk,
	toInt64(ifNull(ad_set_pk, 0)) AS ad_set_pk,
	toInt64(ifNull(ad_pk, 0)) AS ad_pk,
	event_timestamp,
	toFloat64(total_price) AS total_price,
	toFloat64(total_cogs) AS total_cogs,
	toFloat64(payment_fees) AS payment_fees,
	toFloat64(total_tax) AS total_tax,
	toBool(is_first_event_overall) AS is_first_event_overall,
	toBool(is_last_event_overall) AS is_last_event_overall,
	toBool(is_last_paid_event_overall) AS is_last_paid_event_overall,
	toBool(has_any_paid_events) AS has_any_paid_events,
	toBool(is_paid_channel) AS is_paid_channel,
	toBool(is_first_customer_order) AS is_first_customer_order`

const spendColumns = `
	channel,
	ifNull(ad_campaign_id, '') AS ad_campaign_id,
	ifNull(ad_set_id, '') AS ad_set_id,
	ifNull(ad_id, '') AS ad_id,
	toInt64(ifNull(ad_campaign_pk, 0)) AS ad_campaign_pk,
	toInt64(ifNull(ad_set_pk, 0)) AS ad_set_pk,
	toInt64(ifNull(ad_pk, 0)) AS ad_pk,
	toFloat64(spend) AS spend,
	toInt64(impressions) AS impressions,
	toInt64(clicks) AS clicks,
	toInt64(conversions) AS conversions,
	date_time`

// buildTouchpointQuery returns the touchpoint select for a window. Rows are
// ordered so that repeated runs feed the engine the same input order.
func buildTouchpointQuery(table, shopID string, start, endExclusive time.Time, channel string) (string, []any) {
	return buildWindowQuery(touchpointColumns, table, "event_timestamp", "order_id, event_timestamp",
		shopID, start, endExclusive, channel)
}

// buildSpendQuery returns the spend select for a window.
func buildSpendQuery(table, shopID string, start, endExclusive time.Time, channel string) (string, []any) {
	return buildWindowQuery(spendColumns, table, "date_time", "date_time, channel",
		shopID, start, endExclusive, channel)
}

func buildWindowQuery(columns, table, timeColumn, orderBy, shopID string, start, endExclusive time.Time, channel string) (string, []any) {
	var b strings.Builder
	args := []any{shopID, start, endExclusive}

	fmt.Fprintf(&b, "SELECT%s\nFROM %s\nWHERE shop_id = ?\n\tAND %s >= ?\n\tAND %s < ?", columns, table, timeColumn, timeColumn)
	if channel != "" {
		b.WriteString("\n\tAND channel = ?")
		args = append(args, channel)
	}
	fmt.Fprintf(&b, "\nORDER BY %s", orderBy)

	return b.String(), args
}
