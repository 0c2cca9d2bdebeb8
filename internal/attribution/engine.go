package attribution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/radiusdt/vector-attribution/internal/metrics"
	"github.com/radiusdt/vector-attribution/internal/models"
	"github.com/radiusdt/vector-attribution/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DateLayout is the day granularity format of request dates.
const DateLayout = "2006-01-02"

// Request describes one attribution computation. EndDate is inclusive at day
// granularity.
type Request struct {
	Model     models.AttributionModel
	Level     models.AggregationLevel
	ShopID    string
	StartDate time.Time
	EndDate   time.Time
	Channel   string

	// MaxWindowDays caps the inclusive day span; 0 means unlimited.
	MaxWindowDays int
}

// Validate checks the request for configuration errors.
func (r Request) Validate() error {
	if !r.Model.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownModel, r.Model)
	}
	if !r.Level.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownLevel, r.Level)
	}
	if strings.TrimSpace(r.ShopID) == "" {
		return ErrShopRequired
	}
	if r.Level.RequiresChannel() && strings.TrimSpace(r.Channel) == "" {
		return fmt.Errorf("%w: %s", ErrChannelRequired, r.Level)
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidDateRange)
	}
	if r.EndDate.Before(r.StartDate) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidDateRange,
			r.EndDate.Format(DateLayout), r.StartDate.Format(DateLayout))
	}
	if days := r.WindowDays(); r.MaxWindowDays > 0 && days > r.MaxWindowDays {
		return fmt.Errorf("%w: range spans %d days, limit is %d", ErrInvalidDateRange, days, r.MaxWindowDays)
	}
	return nil
}

// WindowDays returns the number of calendar days covered, end inclusive.
func (r Request) WindowDays() int {
	start, endExclusive := r.Window()
	return int(endExclusive.Sub(start).Hours()/24 + 0.5)
}

// Window returns the half-open instant range [start, endExclusive) covered by
// the request: start of StartDate to the start of the day after EndDate.
func (r Request) Window() (time.Time, time.Time) {
	start := truncateDay(r.StartDate)
	return start, truncateDay(r.EndDate).AddDate(0, 0, 1)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Result is the output of one computation. Rows is set at channel and campaign
// level; Campaigns holds the nested tree at ad level.
type Result struct {
	Model     models.AttributionModel      `json:"model"`
	Level     models.AggregationLevel      `json:"level"`
	ShopID    string                       `json:"shop_id"`
	Channel   string                       `json:"channel,omitempty"`
	StartDate string                       `json:"start_date"`
	EndDate   string                       `json:"end_date"`
	IgnoreVAT bool                         `json:"ignore_vat"`
	Rows      []models.GroupedMetricBundle `json:"rows,omitempty"`
	Campaigns []*models.CampaignNode       `json:"campaigns,omitempty"`
}

// Stores are the collaborators the engine reads from.
type Stores struct {
	Touchpoints storage.TouchpointStore
	Spend       storage.SpendStore
	Shops       storage.ShopSettingsStore
	Hierarchy   storage.HierarchyMetadataStore
}

// Engine orchestrates select → weight → group → join for a request. It holds
// no state between calls.
type Engine struct {
	stores    Stores
	organizer *HierarchyOrganizer
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewEngine creates an engine. m may be nil.
func NewEngine(stores Stores, logger *zap.Logger, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		stores:    stores,
		organizer: NewHierarchyOrganizer(logger, m),
		logger:    logger,
		metrics:   m,
	}
}

// Compute runs the attribution pipeline. Configuration errors wrap
// ErrInvalidRequest. Store errors are returned as they came.
func (e *Engine) Compute(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	res, err := e.compute(ctx, req)

	if e.metrics != nil {
		status := "ok"
		switch {
		case IsConfigError(err):
			status = "invalid"
		case err != nil:
			status = "error"
		}
		e.metrics.RecordAttribution(string(req.Model), string(req.Level), status, time.Since(started))
	}
	return res, err
}

func (e *Engine) compute(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start, endExclusive := req.Window()

	touchpoints, spend, settings, err := e.fetchInputs(ctx, req, start, endExclusive)
	if err != nil {
		return nil, err
	}
	ignoreVAT := settings != nil && settings.IgnoreVAT

	touchpoints = filterTouchpoints(touchpoints, start, endExclusive)
	spend = filterSpend(spend, start, endExclusive)

	weighted, err := SelectTouchpoints(req.Model, touchpoints)
	if err != nil {
		return nil, err
	}

	attributed := AggregateTouchpoints(req.Level, req.Channel, weighted)
	spent := AggregateSpend(req.Level, req.Channel, spend)
	rows := JoinSpend(attributed, spent)

	if e.metrics != nil {
		e.metrics.RecordInputs(string(req.Model), string(req.Level), len(touchpoints), len(spend))
	}
	e.logger.Debug("attribution computed",
		zap.String("shop_id", req.ShopID),
		zap.String("model", string(req.Model)),
		zap.String("level", string(req.Level)),
		zap.String("channel", req.Channel),
		zap.Int("touchpoints", len(touchpoints)),
		zap.Int("selected", len(weighted)),
		zap.Int("spend_records", len(spend)),
		zap.Int("groups", len(rows)),
	)

	res := &Result{
		Model:     req.Model,
		Level:     req.Level,
		ShopID:    req.ShopID,
		Channel:   req.Channel,
		StartDate: req.StartDate.Format(DateLayout),
		EndDate:   req.EndDate.Format(DateLayout),
		IgnoreVAT: ignoreVAT,
	}
	if req.Level == models.LevelChannel {
		res.Channel = ""
	}

	if req.Level == models.LevelAd {
		md := e.fetchHierarchyMetadata(ctx, rows)
		res.Campaigns = e.organizer.Organize(rows, md, ignoreVAT)
		return res, nil
	}

	sortByRevenue(rows)
	res.Rows = make([]models.GroupedMetricBundle, 0, len(rows))
	for _, r := range rows {
		res.Rows = append(res.Rows, models.GroupedMetricBundle{
			Key:     r.Key,
			Metrics: deriveMetrics(req.Level, r.Totals, ignoreVAT),
		})
	}
	return res, nil
}

// fetchInputs loads touchpoints, spend and shop settings concurrently. All three
// must succeed before aggregation starts; the first failure cancels the rest.
func (e *Engine) fetchInputs(ctx context.Context, req Request, start, endExclusive time.Time) (
	[]models.TouchpointEvent, []models.SpendRecord, *models.ShopSettings, error,
) {
	var (
		touchpoints []models.TouchpointEvent
		spend       []models.SpendRecord
		settings    *models.ShopSettings
	)

	// Linear weights divide by the number of channels an order touched, so the
	// fetch must not be narrowed to the requested channel.
	touchpointChannel := req.Channel
	if req.Level == models.LevelChannel || req.Model.IsLinear() {
		touchpointChannel = ""
	}
	spendChannel := req.Channel
	if req.Level == models.LevelChannel {
		spendChannel = ""
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		touchpoints, err = e.stores.Touchpoints.FetchTouchpoints(gctx, req.ShopID, start, endExclusive, touchpointChannel)
		return err
	})
	if req.Level.HasSpend() {
		g.Go(func() error {
			var err error
			spend, err = e.stores.Spend.FetchSpend(gctx, req.ShopID, start, endExclusive, spendChannel)
			return err
		})
	}
	g.Go(func() error {
		var err error
		settings, err = e.stores.Shops.GetShopSettings(gctx, req.ShopID)
		return err
	})

	if err := g.Wait(); err != nil {
		e.logger.Error("failed to fetch attribution inputs",
			zap.String("shop_id", req.ShopID),
			zap.String("model", string(req.Model)),
			zap.String("level", string(req.Level)),
			zap.Error(err),
		)
		return nil, nil, nil, err
	}
	return touchpoints, spend, settings, nil
}

// fetchHierarchyMetadata never fails the request: on error it logs and returns
// nil so every node falls back to a generated name.
func (e *Engine) fetchHierarchyMetadata(ctx context.Context, rows []JoinedRow) *models.HierarchyMetadataSet {
	pks := e.organizer.CollectPKs(rows)
	if pks.Empty() || e.stores.Hierarchy == nil {
		return nil
	}
	md, err := e.stores.Hierarchy.FetchHierarchyMetadata(ctx, pks)
	if err != nil {
		e.logger.Warn("hierarchy metadata lookup failed, using generated names",
			zap.Int("campaigns", len(pks.Campaign)),
			zap.Int("ad_sets", len(pks.AdSet)),
			zap.Int("ads", len(pks.Ad)),
			zap.Error(err),
		)
		return nil
	}
	return md
}
