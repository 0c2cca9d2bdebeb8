package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/radiusdt/vector-attribution/internal/models"
)

// PostgresShopStore implements ShopSettingsStore using PostgreSQL.
type PostgresShopStore struct {
	pool *pgxpool.Pool
}

func NewPostgresShopStore(pool *pgxpool.Pool) *PostgresShopStore {
	return &PostgresShopStore{pool: pool}
}

func (r *PostgresShopStore) GetShopSettings(ctx context.Context, shopID string) (*models.ShopSettings, error) {
	var s models.ShopSettings
	err := r.pool.QueryRow(ctx, `
		SELECT id, ignore_vat
		FROM shops WHERE id = $1
	`, shopID).Scan(&s.ShopID, &s.IgnoreVAT)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop settings: %w", err)
	}
	return &s, nil
}

// PostgresHierarchyStore implements HierarchyMetadataStore using PostgreSQL.
type PostgresHierarchyStore struct {
	pool *pgxpool.Pool
}

func NewPostgresHierarchyStore(pool *pgxpool.Pool) *PostgresHierarchyStore {
	return &PostgresHierarchyStore{pool: pool}
}

// hierarchyTables maps each entity to its metadata table.
var hierarchyTables = map[models.HierarchyEntity]string{
	models.EntityCampaign: "ad_campaigns",
	models.EntityAdSet:    "ad_sets",
	models.EntityAd:       "ads",
}

func (r *PostgresHierarchyStore) FetchHierarchyMetadata(ctx context.Context, pks models.HierarchyPKs) (*models.HierarchyMetadataSet, error) {
	out := models.NewHierarchyMetadataSet()

	lookups := []struct {
		entity models.HierarchyEntity
		pks    []int64
		dst    map[int64]models.HierarchyMetadata
	}{
		{models.EntityCampaign, pks.Campaign, out.Campaigns},
		{models.EntityAdSet, pks.AdSet, out.AdSets},
		{models.EntityAd, pks.Ad, out.Ads},
	}

	for _, l := range lookups {
		if len(l.pks) == 0 {
			continue
		}
		if err := r.fetchEntity(ctx, hierarchyTables[l.entity], l.pks, l.dst); err != nil {
			return nil, fmt.Errorf("failed to fetch %s metadata: %w", l.entity, err)
		}
	}
	return out, nil
}

func (r *PostgresHierarchyStore) fetchEntity(ctx context.Context, table string, pks []int64, dst map[int64]models.HierarchyMetadata) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, platform_id, name, status = 'ACTIVE', budget, account_ref, external_url
		FROM `+table+` WHERE id = ANY($1)
	`, pks)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var md models.HierarchyMetadata
		var accountRef, externalURL *string

		if err := rows.Scan(
			&md.PK, &md.PlatformID, &md.Name, &md.Active, &md.Budget, &accountRef, &externalURL,
		); err != nil {
			return err
		}

		if accountRef != nil {
			md.AccountRef = *accountRef
		}
		if externalURL != nil {
			md.ExternalURL = *externalURL
		}
		dst[md.PK] = md
	}
	return rows.Err()
}
