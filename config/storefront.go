package config

import "time"

// StorefrontConfig holds the upstream endpoints and client limits.
type StorefrontConfig struct {
	PriceURL        string        `envconfig:"PRICE_API_URL" default:"https://api.ec.nintendo.com/v1/price"`
	EuropeSearchURL string        `envconfig:"EUROPE_SEARCH_URL" default:"https://searching.nintendo-europe.com/en/select"`
	AlgoliaAppID    string        `envconfig:"ALGOLIA_APP_ID" default:"U3B6GR4UA3"`
	AlgoliaAPIKey   string        `envconfig:"ALGOLIA_API_KEY" default:"a29c6927638bfd8cee23993e51e721c9"`
	AlgoliaIndex    string        `envconfig:"ALGOLIA_INDEX" default:"store_game_en_us"`
	AlgoliaURL      string        `envconfig:"ALGOLIA_URL"`
	JapanCatalogURL string        `envconfig:"JAPAN_CATALOG_URL" default:"https://www.nintendo.co.jp/data/software/xml/switch.xml"`
	RatesURL        string        `envconfig:"RATES_API_URL" default:"https://api.exchangerate-api.com/v4/latest"`
	UserAgent       string        `envconfig:"UPSTREAM_USER_AGENT" default:"eshopscout/1.0 (+price lookup)"`
	RequestsPerSec  int           `envconfig:"UPSTREAM_RPS" default:"10"`
	MaxRetries      int           `envconfig:"UPSTREAM_MAX_RETRIES" default:"2"`
	CatalogTimeout  time.Duration `envconfig:"CATALOG_TIMEOUT" default:"10s"`
	PriceTimeout    time.Duration `envconfig:"PRICE_TIMEOUT" default:"8s"`
	RatesTimeout    time.Duration `envconfig:"RATES_TIMEOUT" default:"5s"`
}

// AlgoliaEndpoint returns the query URL for the Americas index.
func (c StorefrontConfig) AlgoliaEndpoint() string {
	if c.AlgoliaURL != "" {
		return c.AlgoliaURL
	}
	return "https://" + c.AlgoliaAppID + "-dsn.algolia.net/1/indexes/" + c.AlgoliaIndex + "/query"
}

// IsAlgoliaConfigured reports whether the Americas catalog can be queried.
func (c StorefrontConfig) IsAlgoliaConfigured() bool {
	return c.AlgoliaAppID != "" && c.AlgoliaAPIKey != "" && c.AlgoliaIndex != ""
}
