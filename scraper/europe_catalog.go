package scraper

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eshopscout/config"
	"eshopscout/errs"
	"eshopscout/models"
)

const europeGameFilter = "type:GAME AND system_type:nintendoswitch*"

type solrDoc struct {
	Title      string   `json:"title"`
	NsuidTxt   []string `json:"nsuid_txt"`
	Developer  string   `json:"developer"`
	Publisher  string   `json:"publisher"`
	Popularity int      `json:"popularity"`
}

type solrResponse struct {
	Response struct {
		NumFound int       `json:"numFound"`
		Docs     []solrDoc `json:"docs"`
	} `json:"response"`
}

// EuropeCatalog searches the European Solr index.
type EuropeCatalog struct {
	client  *Client
	baseURL string
	rows    int
	timeout time.Duration
}

func NewEuropeCatalog(client *Client, cfg config.StorefrontConfig) *EuropeCatalog {
	return &EuropeCatalog{
		client:  client,
		baseURL: cfg.EuropeSearchURL,
		rows:    50,
		timeout: cfg.CatalogTimeout,
	}
}

func (e *EuropeCatalog) Name() string { return "europe" }

func (e *EuropeCatalog) Partition() models.RegionTag { return models.RegionTagEurope }

// Search runs a free-text query, most popular first.
func (e *EuropeCatalog) Search(ctx context.Context, query string) ([]models.CatalogEntry, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("fq", europeGameFilter)
	q.Set("rows", strconv.Itoa(e.rows))
	q.Set("sort", "popularity desc")
	q.Set("start", "0")
	q.Set("wt", "json")
	return e.query(ctx, q)
}

// LookupByID finds the entry carrying regionalID, or nil.
func (e *EuropeCatalog) LookupByID(ctx context.Context, regionalID string) (*models.CatalogEntry, error) {
	q := url.Values{}
	q.Set("q", "*")
	q.Set("fq", europeGameFilter+` AND nsuid_txt:"`+regionalID+`"`)
	q.Set("rows", "1")
	q.Set("wt", "json")

	entries, err := e.query(ctx, q)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].RegionalID == regionalID {
			return &entries[i], nil
		}
	}
	return nil, nil
}

func (e *EuropeCatalog) query(ctx context.Context, q url.Values) ([]models.CatalogEntry, error) {
	var res solrResponse
	if err := e.client.GetJSON(ctx, e.baseURL+"?"+q.Encode(), e.timeout, &res); err != nil {
		return nil, errs.Wrap(err, "europe catalog search")
	}

	entries := make([]models.CatalogEntry, 0, len(res.Response.Docs))
	for _, doc := range res.Response.Docs {
		if len(doc.NsuidTxt) == 0 || strings.TrimSpace(doc.Title) == "" {
			continue
		}
		entries = append(entries, models.CatalogEntry{
			Title:      strings.TrimSpace(doc.Title),
			RegionalID: doc.NsuidTxt[0],
			Developer:  doc.Developer,
			Publisher:  doc.Publisher,
			Popularity: doc.Popularity,
			Partition:  models.RegionTagEurope,
		})
	}
	return entries, nil
}
