package catalog

// DefaultFallbacks maps a query word to alternate queries tried when nothing
// scores above the acceptance threshold. Catalogs often index series under
// their full or numbered names only.
var DefaultFallbacks = map[string][]string{
	"suikoden": {"Suikoden I", "Suikoden HD", "Suikoden Remaster", "Suikoden I&II"},
	"chrono":   {"Chrono Trigger", "Chrono Cross"},
	"secret":   {"Secret of Mana", "Secret of Evermore"},
	"trials":   {"Trials of Mana", "Trials Rising"},
	"legend":   {"Legend of Zelda", "Legend of Mana"},
	"tales":    {"Tales of", "Tales Arise", "Tales Symphonia"},
	"final":    {"Final Fantasy"},
	"dragon":   {"Dragon Quest", "Dragon Ball"},
	"metal":    {"Metal Slug", "Metal Gear"},
	"sonic":    {"Sonic Hedgehog", "Sonic Mania", "Sonic Origins"},
}
