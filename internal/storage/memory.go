package storage

import (
	"context"
	"sync"
	"time"

	"github.com/radiusdt/vector-attribution/internal/models"
)

// InMemoryEventStore keeps touchpoints and spend per shop in memory. It backs
// development runs without a warehouse and engine tests.
type InMemoryEventStore struct {
	mu          sync.RWMutex
	touchpoints map[string][]models.TouchpointEvent
	spend       map[string][]models.SpendRecord
}

// NewInMemoryEventStore creates a new in-memory event store.
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		touchpoints: make(map[string][]models.TouchpointEvent),
		spend:       make(map[string][]models.SpendRecord),
	}
}

// =============================================
// Touchpoints
// =============================================

func (s *InMemoryEventStore) AddTouchpoints(shopID string, tps ...models.TouchpointEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touchpoints[shopID] = append(s.touchpoints[shopID], tps...)
}

func (s *InMemoryEventStore) FetchTouchpoints(ctx context.Context, shopID string, start, endExclusive time.Time, channel string) ([]models.TouchpointEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.TouchpointEvent, 0)
	for _, tp := range s.touchpoints[shopID] {
		if channel != "" && tp.Channel != channel {
			continue
		}
		if models.InWindow(tp.EventTimestamp, start, endExclusive) {
			result = append(result, tp)
		}
	}
	return result, nil
}

// =============================================
// Spend
// =============================================

func (s *InMemoryEventStore) AddSpend(shopID string, recs ...models.SpendRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spend[shopID] = append(s.spend[shopID], recs...)
}

func (s *InMemoryEventStore) FetchSpend(ctx context.Context, shopID string, start, endExclusive time.Time, channel string) ([]models.SpendRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.SpendRecord, 0)
	for _, rec := range s.spend[shopID] {
		if channel != "" && rec.Channel != channel {
			continue
		}
		if models.InWindow(rec.DateTime, start, endExclusive) {
			result = append(result, rec)
		}
	}
	return result, nil
}

// InMemoryShopStore stores shop settings in memory.
type InMemoryShopStore struct {
	mu    sync.RWMutex
	shops map[string]models.ShopSettings
}

func NewInMemoryShopStore() *InMemoryShopStore {
	return &InMemoryShopStore{shops: make(map[string]models.ShopSettings)}
}

func (s *InMemoryShopStore) Upsert(settings models.ShopSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shops[settings.ShopID] = settings
}

func (s *InMemoryShopStore) GetShopSettings(ctx context.Context, shopID string) (*models.ShopSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.shops[shopID]
	if !ok {
		return nil, nil
	}
	return &settings, nil
}

// InMemoryHierarchyStore stores hierarchy metadata in memory.
type InMemoryHierarchyStore struct {
	mu   sync.RWMutex
	data *models.HierarchyMetadataSet
}

func NewInMemoryHierarchyStore() *InMemoryHierarchyStore {
	return &InMemoryHierarchyStore{data: models.NewHierarchyMetadataSet()}
}

func (s *InMemoryHierarchyStore) Upsert(entity models.HierarchyEntity, md models.HierarchyMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch entity {
	case models.EntityCampaign:
		s.data.Campaigns[md.PK] = md
	case models.EntityAdSet:
		s.data.AdSets[md.PK] = md
	case models.EntityAd:
		s.data.Ads[md.PK] = md
	}
}

func (s *InMemoryHierarchyStore) FetchHierarchyMetadata(ctx context.Context, pks models.HierarchyPKs) (*models.HierarchyMetadataSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := models.NewHierarchyMetadataSet()
	copyKeys(out.Campaigns, s.data.Campaigns, pks.Campaign)
	copyKeys(out.AdSets, s.data.AdSets, pks.AdSet)
	copyKeys(out.Ads, s.data.Ads, pks.Ad)
	return out, nil
}

func copyKeys(dst, src map[int64]models.HierarchyMetadata, keys []int64) {
	for _, k := range keys {
		if md, ok := src[k]; ok {
			dst[k] = md
		}
	}
}
