package models

// NotSetName is the display name of synthetic hierarchy nodes standing in for
// touchpoints or spend without a hierarchy identifier.
const NotSetName = "Not Set"

// HierarchyEntity names one level of the ad hierarchy.
type HierarchyEntity string

const (
	EntityCampaign HierarchyEntity = "campaign"
	EntityAdSet    HierarchyEntity = "ad_set"
	EntityAd       HierarchyEntity = "ad"
)

// HierarchyMetadata is display information for a campaign, ad set or ad.
type HierarchyMetadata struct {
	PK          int64    `json:"pk"`
	PlatformID  string   `json:"platform_id"`
	Name        string   `json:"name"`
	Active      bool     `json:"active"`
	Budget      *float64 `json:"budget,omitempty"`
	AccountRef  string   `json:"account_ref,omitempty"`
	ExternalURL string   `json:"external_url,omitempty"`
}

// HierarchyPKs are the surrogate keys to look up metadata for.
type HierarchyPKs struct {
	Campaign []int64
	AdSet    []int64
	Ad       []int64
}

// Empty reports whether there is nothing to look up.
func (p HierarchyPKs) Empty() bool {
	return len(p.Campaign) == 0 && len(p.AdSet) == 0 && len(p.Ad) == 0
}

// HierarchyMetadataSet is the metadata found for a HierarchyPKs lookup, keyed by pk.
type HierarchyMetadataSet struct {
	Campaigns map[int64]HierarchyMetadata
	AdSets    map[int64]HierarchyMetadata
	Ads       map[int64]HierarchyMetadata
}

// NewHierarchyMetadataSet returns an empty set with initialized maps.
func NewHierarchyMetadataSet() *HierarchyMetadataSet {
	return &HierarchyMetadataSet{
		Campaigns: make(map[int64]HierarchyMetadata),
		AdSets:    make(map[int64]HierarchyMetadata),
		Ads:       make(map[int64]HierarchyMetadata),
	}
}

// Lookup returns the metadata of the given entity and pk, if present.
func (s *HierarchyMetadataSet) Lookup(entity HierarchyEntity, pk int64) (HierarchyMetadata, bool) {
	if s == nil {
		return HierarchyMetadata{}, false
	}
	var m map[int64]HierarchyMetadata
	switch entity {
	case EntityCampaign:
		m = s.Campaigns
	case EntityAdSet:
		m = s.AdSets
	case EntityAd:
		m = s.Ads
	}
	md, ok := m[pk]
	return md, ok
}

// HierarchyNode holds the fields shared by campaign, ad set and ad nodes.
type HierarchyNode struct {
	ID          int64        `json:"id"`
	PlatformID  string       `json:"platform_id,omitempty"`
	Name        string       `json:"name"`
	Active      bool         `json:"active"`
	Budget      *float64     `json:"budget,omitempty"`
	AccountRef  string       `json:"account_ref,omitempty"`
	ExternalURL string       `json:"external_url,omitempty"`
	Metrics     MetricBundle `json:"metrics"`
}

// AdNode is a leaf of the ad hierarchy tree.
type AdNode struct {
	HierarchyNode
}

// AdSetNode groups ads.
type AdSetNode struct {
	HierarchyNode
	Ads []*AdNode `json:"ads"`
}

// CampaignNode is the root of one ad hierarchy tree.
type CampaignNode struct {
	HierarchyNode
	Channel string       `json:"channel"`
	AdSets  []*AdSetNode `json:"ad_sets"`
}
