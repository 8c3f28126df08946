package scraper

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"eshopscout/config"
	"eshopscout/errs"
	"eshopscout/models"
)

type apiAmount struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	RawValue string `json:"raw_value"`
}

type priceEntry struct {
	TitleID       interface{} `json:"title_id"`
	SalesStatus   string      `json:"sales_status"`
	RegularPrice  *apiAmount  `json:"regular_price"`
	DiscountPrice *apiAmount  `json:"discount_price"`
}

type priceResponse struct {
	Personalized bool         `json:"personalized"`
	Country      string       `json:"country"`
	Prices       []priceEntry `json:"prices"`
}

// PriceAPI is the storefront price endpoint, queried one title and one
// country at a time.
type PriceAPI struct {
	client  *Client
	baseURL string
	lang    string
	timeout time.Duration
	parser  *LocaleParser
}

func NewPriceAPI(client *Client, cfg config.StorefrontConfig) *PriceAPI {
	return &PriceAPI{
		client:  client,
		baseURL: cfg.PriceURL,
		lang:    "en",
		timeout: cfg.PriceTimeout,
		parser:  NewLocaleParser(),
	}
}

// GetPrice returns the price record for regionalID in regionCode, or nil when
// the storefront has no entry for it there.
func (p *PriceAPI) GetPrice(ctx context.Context, regionalID, regionCode string) (*models.PriceRecord, error) {
	entry, err := p.fetch(ctx, regionalID, regionCode)
	if err != nil || entry == nil {
		return nil, err
	}
	return p.toRecord(entry)
}

func (p *PriceAPI) fetch(ctx context.Context, regionalID, regionCode string) (*priceEntry, error) {
	q := url.Values{}
	q.Set("country", strings.ToUpper(regionCode))
	q.Set("ids", regionalID)
	q.Set("lang", p.lang)

	var res priceResponse
	if err := p.client.GetJSON(ctx, p.baseURL+"?"+q.Encode(), p.timeout, &res); err != nil {
		return nil, errs.Mark(errs.Wrapf(err, "price %s/%s", regionCode, regionalID), errs.ErrRegionFetch)
	}
	if len(res.Prices) == 0 {
		return nil, nil
	}
	return &res.Prices[0], nil
}

func mapSalesStatus(raw string) models.SalesStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "onsale":
		return models.SalesStatusOnSale
	case "not_found", "unreleased", "sales_termination", "preorder":
		return models.SalesStatusNotAvailable
	default:
		return models.SalesStatusUnknown
	}
}

func (p *PriceAPI) toRecord(e *priceEntry) (*models.PriceRecord, error) {
	record := &models.PriceRecord{SalesStatus: mapSalesStatus(e.SalesStatus)}
	if e.RegularPrice == nil {
		if record.IsOnSale() {
			return nil, errs.Mark(errs.New("onsale entry without a regular price"), errs.ErrRegionFetch)
		}
		return record, nil
	}

	regular, err := p.amount(e.RegularPrice)
	if err != nil {
		return nil, errs.Mark(errs.Wrap(err, "regular price"), errs.ErrRegionFetch)
	}
	record.RegularPrice = regular
	record.Currency = strings.ToUpper(e.RegularPrice.Currency)

	if e.DiscountPrice != nil {
		discount, err := p.amount(e.DiscountPrice)
		if err == nil && discount.IsPositive() {
			record.DiscountPrice = decimal.NewNullDecimal(discount)
		}
	}
	return record, nil
}

// amount prefers the machine value and falls back to parsing the display string.
func (p *PriceAPI) amount(a *apiAmount) (decimal.Decimal, error) {
	if a.RawValue != "" {
		if v, err := decimal.NewFromString(a.RawValue); err == nil {
			return v, nil
		}
	}
	v, _, err := p.parser.ParsePrice(a.Amount)
	return v, err
}
