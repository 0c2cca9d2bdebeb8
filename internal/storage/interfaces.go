package storage

import (
	"context"
	"time"

	"github.com/radiusdt/vector-attribution/internal/models"
)

// =============================================
// WAREHOUSE STORES
// =============================================

// TouchpointStore supplies touchpoint events for a shop and window.
// An empty channel means all channels.
type TouchpointStore interface {
	FetchTouchpoints(ctx context.Context, shopID string, start, endExclusive time.Time, channel string) ([]models.TouchpointEvent, error)
}

// SpendStore supplies ad spend records for a shop and window.
// An empty channel means all channels.
type SpendStore interface {
	FetchSpend(ctx context.Context, shopID string, start, endExclusive time.Time, channel string) ([]models.SpendRecord, error)
}

// =============================================
// SIDE STORES
// =============================================

// ShopSettingsStore supplies per-shop settings. A shop without a row yields
// (nil, nil) and the engine applies defaults.
type ShopSettingsStore interface {
	GetShopSettings(ctx context.Context, shopID string) (*models.ShopSettings, error)
}

// HierarchyMetadataStore supplies display metadata for ad hierarchy nodes.
// Keys without a row are absent from the result.
type HierarchyMetadataStore interface {
	FetchHierarchyMetadata(ctx context.Context, pks models.HierarchyPKs) (*models.HierarchyMetadataSet, error)
}
