package scraper

import (
	"context"
	"strings"
	"time"

	"eshopscout/config"
	"eshopscout/errs"
	"eshopscout/models"
)

type algoliaHit struct {
	Title             string `json:"title"`
	Nsuid             string `json:"nsuid"`
	SoftwareDeveloper string `json:"softwareDeveloper"`
	SoftwarePublisher string `json:"softwarePublisher"`
}

type algoliaResponse struct {
	Hits []algoliaHit `json:"hits"`
}

type algoliaQuery struct {
	Query       string `json:"query"`
	HitsPerPage int    `json:"hitsPerPage"`
}

// AmericasCatalog queries the Americas Algolia index.
type AmericasCatalog struct {
	client   *Client
	endpoint string
	headers  map[string]string
	hits     int
	timeout  time.Duration
}

func NewAmericasCatalog(client *Client, cfg config.StorefrontConfig) *AmericasCatalog {
	return &AmericasCatalog{
		client:   client,
		endpoint: cfg.AlgoliaEndpoint(),
		headers: map[string]string{
			"X-Algolia-Application-Id": cfg.AlgoliaAppID,
			"X-Algolia-API-Key":        cfg.AlgoliaAPIKey,
		},
		hits:    50,
		timeout: cfg.CatalogTimeout,
	}
}

func (a *AmericasCatalog) Name() string { return "americas" }

func (a *AmericasCatalog) Partition() models.RegionTag { return models.RegionTagAmericas }

// Search returns hits that carry a regional id.
func (a *AmericasCatalog) Search(ctx context.Context, query string) ([]models.CatalogEntry, error) {
	var res algoliaResponse
	body := algoliaQuery{Query: query, HitsPerPage: a.hits}
	if err := a.client.PostJSON(ctx, a.endpoint, a.headers, body, a.timeout, &res); err != nil {
		return nil, errs.Wrap(err, "americas catalog search")
	}

	entries := make([]models.CatalogEntry, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if hit.Nsuid == "" || strings.TrimSpace(hit.Title) == "" {
			continue
		}
		entries = append(entries, models.CatalogEntry{
			Title:      strings.TrimSpace(hit.Title),
			RegionalID: hit.Nsuid,
			Developer:  hit.SoftwareDeveloper,
			Publisher:  hit.SoftwarePublisher,
			Partition:  models.RegionTagAmericas,
		})
	}
	return entries, nil
}
