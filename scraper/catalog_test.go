package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eshopscout/cache"
	"eshopscout/logger"
	"eshopscout/models"
)

func TestEuropeCatalog_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/en/select", r.URL.Path)
		assert.Equal(t, "metroid", q.Get("q"))
		assert.Equal(t, "popularity desc", q.Get("sort"))
		assert.Equal(t, "50", q.Get("rows"))
		assert.Equal(t, europeGameFilter, q.Get("fq"))
		_, _ = w.Write([]byte(`{"response":{"numFound":3,"docs":[
			{"title":"Metroid Dread","nsuid_txt":["70010000037118"],"publisher":"Nintendo","developer":"MercurySteam","popularity":900},
			{"title":"Metroid Prime Remastered","nsuid_txt":["70010000063713","70010000063714"],"publisher":"Nintendo"},
			{"title":"Metroid Art Book"}
		]}}`))
	}))
	defer srv.Close()

	cfg := testStorefront(srv.URL)
	eu := NewEuropeCatalog(newTestClient(cfg, 0), cfg)
	entries, err := eu.Search(context.Background(), "metroid")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.CatalogEntry{
		Title:      "Metroid Dread",
		RegionalID: "70010000037118",
		Developer:  "MercurySteam",
		Publisher:  "Nintendo",
		Popularity: 900,
		Partition:  models.RegionTagEurope,
	}, entries[0])
	assert.Equal(t, "70010000063713", entries[1].RegionalID)
	assert.Equal(t, models.RegionTagEurope, eu.Partition())
}

func TestEuropeCatalog_LookupByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("fq"), `nsuid_txt:"70010000037118"`)
		if r.URL.Query().Get("fq") == europeGameFilter+` AND nsuid_txt:"70010000037118"` {
			_, _ = w.Write([]byte(`{"response":{"docs":[{"title":"Metroid Dread","nsuid_txt":["70010000037118"]}]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"response":{"docs":[]}}`))
	}))
	defer srv.Close()

	cfg := testStorefront(srv.URL)
	eu := NewEuropeCatalog(newTestClient(cfg, 0), cfg)

	entry, err := eu.LookupByID(context.Background(), "70010000037118")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Metroid Dread", entry.Title)
}

func TestAmericasCatalog_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "APP", r.Header.Get("X-Algolia-Application-Id"))
		assert.Equal(t, "KEY", r.Header.Get("X-Algolia-API-Key"))

		var body algoliaQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "kirby", body.Query)
		assert.Equal(t, 50, body.HitsPerPage)

		_, _ = w.Write([]byte(`{"hits":[
			{"title":"Kirby and the Forgotten Land","nsuid":"70010000040123","softwarePublisher":"Nintendo","softwareDeveloper":"HAL Laboratory"},
			{"title":"Kirby Plush","nsuid":""}
		]}`))
	}))
	defer srv.Close()

	cfg := testStorefront(srv.URL)
	am := NewAmericasCatalog(newTestClient(cfg, 0), cfg)
	entries, err := am.Search(context.Background(), "kirby")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "HAL Laboratory", entries[0].Developer)
	assert.Equal(t, models.RegionTagAmericas, entries[0].Partition)
}

const japanXML = `<?xml version="1.0" encoding="UTF-8"?>
<TitleInfoList>
  <TitleInfo><TitleName>マリオカート８ デラックス</TitleName><MakerName>任天堂</MakerName><LinkURL>/titles/70010000000153</LinkURL></TitleInfo>
  <TitleInfo><TitleName>ゼルダの伝説　ブレス オブ ザ ワイルド</TitleName><MakerName>任天堂</MakerName><LinkURL>https://store-jp.nintendo.com/titles/70010000000025</LinkURL></TitleInfo>
  <TitleInfo><TitleName>ＳＰＬＡＴＯＯＮ ３</TitleName><MakerName>任天堂</MakerName><LinkURL>/titles/70010000046395</LinkURL></TitleInfo>
  <TitleInfo><TitleName>No link</TitleName><LinkURL>/software/abc</LinkURL></TitleInfo>
</TitleInfoList>`

func TestJapanCatalog_SearchUsesSnapshot(t *testing.T) {
	var downloads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		downloads.Add(1)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(japanXML))
	}))
	defer srv.Close()

	snapshots, err := cache.New[[]models.CatalogEntry]("catalog", time.Hour, 10, nil, logger.Discard())
	require.NoError(t, err)
	cfg := testStorefront(srv.URL)
	jp := NewJapanCatalog(newTestClient(cfg, 0), cfg, snapshots)
	ctx := context.Background()

	entries, err := jp.Search(ctx, "マリオカート")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "70010000000153", entries[0].RegionalID)
	assert.Equal(t, "マリオカート8 デラックス", entries[0].Title)
	assert.Equal(t, models.RegionTagAsia, entries[0].Partition)

	entries, err = jp.Search(ctx, "splatoon 3")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "70010000046395", entries[0].RegionalID)

	entries, err = jp.Search(ctx, "ゼルダの伝説 ティアーズ")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "70010000000025", entries[0].RegionalID)

	assert.EqualValues(t, 1, downloads.Load())
}

func TestParseJapanCatalog_Malformed(t *testing.T) {
	_, err := parseJapanCatalog([]byte("<TitleInfoList><TitleInfo>"))
	assert.Error(t, err)
}

func TestRatesAPI_FetchRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/latest/SGD":
			_, _ = w.Write([]byte(`{"base":"SGD","rates":{"usd":0.74,"JPY":110.5,"BAD":0}}`))
		default:
			_, _ = w.Write([]byte(`{"base":"EUR","rates":{"USD":1.1}}`))
		}
	}))
	defer srv.Close()

	cfg := testStorefront(srv.URL)
	api := NewRatesAPI(newTestClient(cfg, 0), cfg)

	rates, err := api.FetchRates(context.Background(), "sgd")
	require.NoError(t, err)
	assert.Len(t, rates, 2)
	assert.Equal(t, "0.74", rates["USD"].String())
	assert.Equal(t, "110.5", rates["JPY"].String())

	_, err = api.FetchRates(context.Background(), "USD")
	assert.Error(t, err)
}
