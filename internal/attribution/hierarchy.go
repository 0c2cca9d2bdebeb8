package attribution

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/radiusdt/vector-attribution/internal/metrics"
	"github.com/radiusdt/vector-attribution/internal/models"
	"go.uber.org/zap"
)

// HierarchyOrganizer reshapes flat ad-level rows into campaign → ad set → ad trees.
type HierarchyOrganizer struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHierarchyOrganizer creates an organizer. metrics may be nil.
func NewHierarchyOrganizer(logger *zap.Logger, m *metrics.Metrics) *HierarchyOrganizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HierarchyOrganizer{logger: logger, metrics: m}
}

// CollectPKs returns the distinct non-zero surrogate keys referenced by rows.
func (h *HierarchyOrganizer) CollectPKs(rows []JoinedRow) models.HierarchyPKs {
	var pks models.HierarchyPKs
	seen := map[models.HierarchyEntity]map[int64]struct{}{
		models.EntityCampaign: {},
		models.EntityAdSet:    {},
		models.EntityAd:       {},
	}
	add := func(entity models.HierarchyEntity, pk int64, dst *[]int64) {
		if pk == 0 {
			return
		}
		if _, ok := seen[entity][pk]; ok {
			return
		}
		seen[entity][pk] = struct{}{}
		*dst = append(*dst, pk)
	}
	for _, r := range rows {
		add(models.EntityCampaign, r.Key.AdCampaignPK, &pks.Campaign)
		add(models.EntityAdSet, r.Key.AdSetPK, &pks.AdSet)
		add(models.EntityAd, r.Key.AdPK, &pks.Ad)
	}
	return pks
}

type adSetAcc struct {
	node   *models.AdSetNode
	totals Totals
	ads    []*adAcc
}

type adAcc struct {
	node   *models.AdNode
	totals Totals
}

type campaignAcc struct {
	node   *models.CampaignNode
	totals Totals
	adSets []*adSetAcc
	index  map[int64]*adSetAcc
}

// Organize builds the trees. md may be nil when the metadata lookup failed; every
// node then gets a generated name. Parent metrics are re-derived from children:
// additive components are summed, distinct orders take the children's maximum,
// and ratios are recomputed from the summed components.
func (h *HierarchyOrganizer) Organize(rows []JoinedRow, md *models.HierarchyMetadataSet, ignoreVAT bool) []*models.CampaignNode {
	var campaigns []*campaignAcc
	byPK := make(map[int64]*campaignAcc)

	for _, r := range rows {
		c, ok := byPK[r.Key.AdCampaignPK]
		if !ok {
			c = &campaignAcc{
				node: &models.CampaignNode{
					HierarchyNode: h.node(models.EntityCampaign, r.Key.AdCampaignPK, r.Key.AdCampaignID, md),
					Channel:       r.Key.Channel,
				},
				index: make(map[int64]*adSetAcc),
			}
			byPK[r.Key.AdCampaignPK] = c
			campaigns = append(campaigns, c)
		}

		s, ok := c.index[r.Key.AdSetPK]
		if !ok {
			s = &adSetAcc{
				node: &models.AdSetNode{
					HierarchyNode: h.node(models.EntityAdSet, r.Key.AdSetPK, r.Key.AdSetID, md),
				},
			}
			c.index[r.Key.AdSetPK] = s
			c.adSets = append(c.adSets, s)
		}

		s.ads = append(s.ads, &adAcc{
			node:   &models.AdNode{HierarchyNode: h.node(models.EntityAd, r.Key.AdPK, r.Key.AdID, md)},
			totals: r.Totals,
		})
	}

	for _, c := range campaigns {
		for _, s := range c.adSets {
			for _, a := range s.ads {
				s.totals.absorbChild(a.totals)
			}
			c.totals.absorbChild(s.totals)
		}
	}

	out := make([]*models.CampaignNode, 0, len(campaigns))
	sortByTotals(campaigns, func(c *campaignAcc) float64 { return c.totals.AttributedRevenue })
	for _, c := range campaigns {
		sortByTotals(c.adSets, func(s *adSetAcc) float64 { return s.totals.AttributedRevenue })
		for _, s := range c.adSets {
			sortByTotals(s.ads, func(a *adAcc) float64 { return a.totals.AttributedRevenue })
			for _, a := range s.ads {
				a.node.Metrics = deriveMetrics(models.LevelAd, a.totals, ignoreVAT)
				s.node.Ads = append(s.node.Ads, a.node)
			}
			s.node.Metrics = deriveMetrics(models.LevelAd, s.totals, ignoreVAT)
			c.node.AdSets = append(c.node.AdSets, s.node)
		}
		c.node.Metrics = deriveMetrics(models.LevelAd, c.totals, ignoreVAT)
		out = append(out, c.node)
	}
	return out
}

// sortByTotals sorts items by revenue descending, keeping input order among ties.
func sortByTotals[T any](items []T, revenue func(T) float64) {
	sort.SliceStable(items, func(i, j int) bool {
		return revenue(items[i]) > revenue(items[j])
	})
}

func (h *HierarchyOrganizer) node(entity models.HierarchyEntity, pk int64, platformID string, md *models.HierarchyMetadataSet) models.HierarchyNode {
	if pk == 0 {
		return models.HierarchyNode{ID: 0, Name: models.NotSetName}
	}

	meta, ok := md.Lookup(entity, pk)
	if !ok || meta.Name == "" {
		if h.metrics != nil {
			h.metrics.RecordMetadataFallback(string(entity))
		}
		h.logger.Debug("hierarchy metadata missing, using generated name",
			zap.String("entity", string(entity)),
			zap.Int64("pk", pk),
		)
		if platformID == "" {
			platformID = meta.PlatformID
		}
		return models.HierarchyNode{
			ID:         pk,
			PlatformID: platformID,
			Name:       fallbackName(entity, pk, platformID),
			Active:     meta.Active,
			Budget:     meta.Budget,
			AccountRef: meta.AccountRef,
		}
	}

	if meta.PlatformID != "" {
		platformID = meta.PlatformID
	}
	return models.HierarchyNode{
		ID:          pk,
		PlatformID:  platformID,
		Name:        meta.Name,
		Active:      meta.Active,
		Budget:      meta.Budget,
		AccountRef:  meta.AccountRef,
		ExternalURL: meta.ExternalURL,
	}
}

func fallbackName(entity models.HierarchyEntity, pk int64, platformID string) string {
	if platformID == "" {
		platformID = strconv.FormatInt(pk, 10)
	}
	switch entity {
	case models.EntityCampaign:
		return fmt.Sprintf("Campaign %s", platformID)
	case models.EntityAdSet:
		return fmt.Sprintf("Ad Set %s", platformID)
	default:
		return fmt.Sprintf("Ad %s", platformID)
	}
}
