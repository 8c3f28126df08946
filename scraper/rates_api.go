package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"eshopscout/config"
	"eshopscout/errs"
)

type ratesResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// RatesAPI fetches a live exchange-rate table.
type RatesAPI struct {
	client  *Client
	baseURL string
	timeout time.Duration
}

func NewRatesAPI(client *Client, cfg config.StorefrontConfig) *RatesAPI {
	return &RatesAPI{
		client:  client,
		baseURL: strings.TrimRight(cfg.RatesURL, "/"),
		timeout: cfg.RatesTimeout,
	}
}

// FetchRates returns units of each currency per one unit of base.
func (r *RatesAPI) FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	base = strings.ToUpper(base)
	var res ratesResponse
	if err := r.client.GetJSON(ctx, r.baseURL+"/"+base, r.timeout, &res); err != nil {
		return nil, errs.Wrapf(err, "exchange rates for %s", base)
	}
	if res.Base != "" && !strings.EqualFold(res.Base, base) {
		return nil, errs.Newf("rate table quoted in %s, wanted %s", res.Base, base)
	}

	rates := make(map[string]decimal.Decimal, len(res.Rates))
	for code, rate := range res.Rates {
		if rate.IsPositive() {
			rates[strings.ToUpper(code)] = rate
		}
	}
	return rates, nil
}
