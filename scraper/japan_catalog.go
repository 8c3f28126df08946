package scraper

import (
	"bytes"
	"context"
	"encoding/xml"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/width"

	"eshopscout/cache"
	"eshopscout/config"
	"eshopscout/errs"
	"eshopscout/models"
)

const (
	japanSnapshotKey = "jp-switch"
	japanMaxResults  = 50
)

var japanIDPattern = regexp.MustCompile(`/titles/(\d{14})`)

type japanTitle struct {
	TitleName string `xml:"TitleName"`
	MakerName string `xml:"MakerName"`
	LinkURL   string `xml:"LinkURL"`
}

type japanTitleList struct {
	XMLName xml.Name     `xml:"TitleInfoList"`
	Titles  []japanTitle `xml:"TitleInfo"`
}

// JapanCatalog searches a snapshot of the Japanese catalog XML locally. The
// upstream has no search endpoint, so the whole list is downloaded and kept
// for the snapshot TTL.
type JapanCatalog struct {
	client    *Client
	url       string
	timeout   time.Duration
	snapshots *cache.ResultCache[[]models.CatalogEntry]

	loadMu sync.Mutex
}

func NewJapanCatalog(client *Client, cfg config.StorefrontConfig, snapshots *cache.ResultCache[[]models.CatalogEntry]) *JapanCatalog {
	return &JapanCatalog{
		client:    client,
		url:       cfg.JapanCatalogURL,
		timeout:   cfg.CatalogTimeout,
		snapshots: snapshots,
	}
}

func (j *JapanCatalog) Name() string { return "japan" }

func (j *JapanCatalog) Partition() models.RegionTag { return models.RegionTagAsia }

// Search returns entries containing every query word, or failing that any
// query word. Matching is case and width insensitive.
func (j *JapanCatalog) Search(ctx context.Context, query string) ([]models.CatalogEntry, error) {
	entries, err := j.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	words := strings.Fields(foldTitle(query))
	if len(words) == 0 {
		return nil, nil
	}

	var all, partial []models.CatalogEntry
	for _, e := range entries {
		title := foldTitle(e.Title)
		matched := 0
		for _, w := range words {
			if strings.Contains(title, w) {
				matched++
			}
		}
		switch {
		case matched == len(words):
			all = append(all, e)
		case matched > 0 && len(partial) < japanMaxResults:
			partial = append(partial, e)
		}
		if len(all) >= japanMaxResults {
			break
		}
	}
	if len(all) > 0 {
		return all, nil
	}
	return partial, nil
}

func (j *JapanCatalog) snapshot(ctx context.Context) ([]models.CatalogEntry, error) {
	if entries, ok := j.snapshots.Get(ctx, japanSnapshotKey); ok {
		return entries, nil
	}

	j.loadMu.Lock()
	defer j.loadMu.Unlock()
	if entries, ok := j.snapshots.Get(ctx, japanSnapshotKey); ok {
		return entries, nil
	}

	body, err := j.client.Get(ctx, j.url, j.timeout)
	if err != nil {
		return nil, errs.Wrap(err, "download japan catalog")
	}
	entries, err := parseJapanCatalog(body)
	if err != nil {
		return nil, err
	}
	j.snapshots.Set(ctx, japanSnapshotKey, entries)
	return entries, nil
}

func parseJapanCatalog(body []byte) ([]models.CatalogEntry, error) {
	var list japanTitleList
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&list); err != nil {
		return nil, errs.Wrap(err, "decode japan catalog")
	}

	entries := make([]models.CatalogEntry, 0, len(list.Titles))
	for _, t := range list.Titles {
		m := japanIDPattern.FindStringSubmatch(t.LinkURL)
		if m == nil {
			continue
		}
		title := width.Fold.String(strings.TrimSpace(t.TitleName))
		if title == "" {
			continue
		}
		entries = append(entries, models.CatalogEntry{
			Title:      title,
			RegionalID: m[1],
			Publisher:  width.Fold.String(strings.TrimSpace(t.MakerName)),
			Partition:  models.RegionTagAsia,
		})
	}
	return entries, nil
}

func foldTitle(s string) string {
	return strings.ToLower(width.Fold.String(s))
}
