package regions

import "eshopscout/models"

func profile(code, currency, name string, difficult, giftCards bool, partition models.RegionTag) models.RegionProfile {
	return models.RegionProfile{
		Code:               code,
		Currency:           currency,
		DisplayName:        name,
		PurchaseDifficulty: difficult,
		GiftCardsAvailable: giftCards,
		Partition:          partition,
	}
}

func direct(code, currency, name string, difficult, giftCards bool) models.RegionProfile {
	p := profile(code, currency, name, difficult, giftCards, models.RegionTagAsia)
	p.Direct = true
	return p
}

var (
	am = models.RegionTagAmericas
	eu = models.RegionTagEurope
	as = models.RegionTagAsia
)

// staticProfiles is the built-in market table in lookup order.
var staticProfiles = []models.RegionProfile{
	profile("US", "USD", "United States", false, true, am),
	profile("CA", "CAD", "Canada", false, true, am),
	profile("MX", "MXN", "Mexico", true, true, am),
	profile("BR", "BRL", "Brazil", true, true, am),
	profile("AR", "ARS", "Argentina", true, true, am),
	profile("CL", "CLP", "Chile", true, false, am),
	profile("CO", "COP", "Colombia", true, false, am),
	profile("PE", "PEN", "Peru", true, false, am),

	profile("GB", "GBP", "United Kingdom", false, true, eu),
	profile("DE", "EUR", "Germany", false, true, eu),
	profile("FR", "EUR", "France", false, true, eu),
	profile("IT", "EUR", "Italy", false, true, eu),
	profile("ES", "EUR", "Spain", false, true, eu),
	profile("NL", "EUR", "Netherlands", false, true, eu),
	profile("BE", "EUR", "Belgium", false, false, eu),
	profile("CH", "CHF", "Switzerland", true, false, eu),
	profile("AT", "EUR", "Austria", false, false, eu),
	profile("PT", "EUR", "Portugal", false, false, eu),
	profile("IE", "EUR", "Ireland", false, false, eu),
	profile("LU", "EUR", "Luxembourg", false, false, eu),
	profile("CZ", "CZK", "Czech Republic", true, false, eu),
	profile("DK", "DKK", "Denmark", false, false, eu),
	profile("FI", "EUR", "Finland", false, false, eu),
	profile("GR", "EUR", "Greece", true, false, eu),
	profile("HU", "HUF", "Hungary", true, false, eu),
	profile("NO", "NOK", "Norway", true, false, eu),
	profile("PL", "PLN", "Poland", true, false, eu),
	profile("SE", "SEK", "Sweden", false, false, eu),
	profile("SK", "EUR", "Slovakia", true, false, eu),
	profile("SI", "EUR", "Slovenia", true, false, eu),
	profile("HR", "EUR", "Croatia", true, false, eu),
	profile("BG", "EUR", "Bulgaria", true, false, eu),
	profile("RO", "EUR", "Romania", true, false, eu),
	profile("EE", "EUR", "Estonia", true, false, eu),
	profile("LV", "EUR", "Latvia", true, false, eu),
	profile("LT", "EUR", "Lithuania", true, false, eu),
	profile("CY", "EUR", "Cyprus", true, false, eu),
	profile("MT", "EUR", "Malta", true, false, eu),
	profile("RU", "RUB", "Russia", true, true, eu),
	profile("AU", "AUD", "Australia", false, true, eu),
	profile("NZ", "NZD", "New Zealand", false, false, eu),
	profile("ZA", "ZAR", "South Africa", true, true, eu),

	profile("JP", "JPY", "Japan", true, true, as),

	// answer the price API but never show up in the active-shop probe
	direct("HK", "HKD", "Hong Kong", true, true),
	direct("SG", "SGD", "Singapore", false, false),
	direct("KR", "KRW", "South Korea", true, false),
	direct("TW", "TWD", "Taiwan", true, false),
	direct("TH", "THB", "Thailand", true, false),
	direct("MY", "MYR", "Malaysia", true, false),
}

// Static returns a copy of the built-in table.
func Static() []models.RegionProfile {
	out := make([]models.RegionProfile, len(staticProfiles))
	copy(out, staticProfiles)
	return out
}
