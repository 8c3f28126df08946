package models

import "strings"

// RegionTag names a catalog partition. The special tag "home" marks the
// identifier a search originated from.
type RegionTag string

const (
	RegionTagHome     RegionTag = "home"
	RegionTagAmericas RegionTag = "americas"
	RegionTagEurope   RegionTag = "europe"
	RegionTagAsia     RegionTag = "asia"
)

// Partitions lists the catalog partitions in lookup order.
var Partitions = []RegionTag{RegionTagAmericas, RegionTagEurope, RegionTagAsia}

// ParseRegionTag maps a configured source name to a tag.
func ParseRegionTag(name string) (RegionTag, bool) {
	switch RegionTag(strings.ToLower(strings.TrimSpace(name))) {
	case RegionTagAmericas:
		return RegionTagAmericas, true
	case RegionTagEurope:
		return RegionTagEurope, true
	case RegionTagAsia, "japan":
		return RegionTagAsia, true
	}
	return "", false
}

// CatalogEntry is a title as known in one regional catalog.
type CatalogEntry struct {
	Title      string    `json:"title"`
	RegionalID string    `json:"regional_id"`
	Developer  string    `json:"developer,omitempty"`
	Publisher  string    `json:"publisher,omitempty"`
	Popularity int       `json:"popularity,omitempty"`
	Partition  RegionTag `json:"partition"`
}

// ScoredEntry pairs a catalog entry with its match score for a query.
// AlsoListed holds the identifiers of the same title in other partitions.
type ScoredEntry struct {
	Entry      CatalogEntry         `json:"entry"`
	Score      int                  `json:"score"`
	AlsoListed map[RegionTag]string `json:"also_listed,omitempty"`
}

// MatchedTitle is the resolved subject of a price search. RegionalIDs always
// holds the home entry.
type MatchedTitle struct {
	CanonicalTitle string               `json:"canonical_title"`
	RegionalIDs    map[RegionTag]string `json:"regional_ids"`
	HomePartition  RegionTag            `json:"home_partition,omitempty"`
}

// NewMatchedTitle builds a title from the entry a search settled on.
func NewMatchedTitle(entry CatalogEntry) *MatchedTitle {
	m := &MatchedTitle{
		CanonicalTitle: entry.Title,
		RegionalIDs:    map[RegionTag]string{RegionTagHome: entry.RegionalID},
		HomePartition:  entry.Partition,
	}
	if entry.Partition != "" {
		m.RegionalIDs[entry.Partition] = entry.RegionalID
	}
	return m
}

// HomeID returns the identifier the search originated from.
func (m *MatchedTitle) HomeID() string {
	return m.RegionalIDs[RegionTagHome]
}

// IDFor returns the identifier for a partition, if one was resolved.
func (m *MatchedTitle) IDFor(tag RegionTag) (string, bool) {
	id, ok := m.RegionalIDs[tag]
	return id, ok && id != ""
}

// Merge adds resolved identifiers. The home entry is never replaced.
func (m *MatchedTitle) Merge(ids map[RegionTag]string) {
	if m.RegionalIDs == nil {
		m.RegionalIDs = make(map[RegionTag]string, len(ids))
	}
	for tag, id := range ids {
		if id == "" {
			continue
		}
		if tag == RegionTagHome {
			if _, exists := m.RegionalIDs[RegionTagHome]; exists {
				continue
			}
		}
		m.RegionalIDs[tag] = id
	}
}
