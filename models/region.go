package models

// RegionProfile is static metadata for one sellable market.
type RegionProfile struct {
	Code               string    `json:"code"`
	Currency           string    `json:"currency"`
	DisplayName        string    `json:"display_name"`
	PurchaseDifficulty bool      `json:"purchase_difficulty"`
	GiftCardsAvailable bool      `json:"gift_cards_available"`
	Partition          RegionTag `json:"partition"`
	// Direct regions answer the price API but are never reported by the
	// active-shop probe.
	Direct bool `json:"direct,omitempty"`
}

// ActiveShop is a market the live probe found answering price requests.
type ActiveShop struct {
	Code      string    `json:"code"`
	Currency  string    `json:"currency"`
	Partition RegionTag `json:"partition"`
}
