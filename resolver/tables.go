package resolver

import "eshopscout/models"

// Override pins known identifiers for titles containing Match (lowercase).
type Override struct {
	Match string
	IDs   map[models.RegionTag]string
}

// DefaultOverrides covers popular titles whose catalog names differ enough
// between partitions that name search is unreliable.
var DefaultOverrides = []Override{
	{Match: "mario kart 8 deluxe", IDs: map[models.RegionTag]string{models.RegionTagEurope: "70010000000126"}},
	{Match: "breath of the wild", IDs: map[models.RegionTag]string{models.RegionTagEurope: "70010000000023"}},
	{Match: "super mario odyssey", IDs: map[models.RegionTag]string{models.RegionTagEurope: "70010000000127"}},
	{Match: "pokemon scarlet", IDs: map[models.RegionTag]string{models.RegionTagEurope: "70010000053967"}},
	{Match: "pokémon scarlet", IDs: map[models.RegionTag]string{models.RegionTagEurope: "70010000053967"}},
	{Match: "smash bros. ultimate", IDs: map[models.RegionTag]string{models.RegionTagEurope: "70010000012332"}},
	{Match: "splatoon 3", IDs: map[models.RegionTag]string{models.RegionTagEurope: "70010000040857"}},
	{Match: "metroid dread", IDs: map[models.RegionTag]string{models.RegionTagEurope: "70010000037118"}},
}

// Transliteration maps a latin franchise phrase to its native-script name.
type Transliteration struct {
	Phrase string
	Native string
}

// NativeNames holds per-partition transliterations, tried in order, for
// catalogs that only index titles in their own script.
var NativeNames = map[models.RegionTag][]Transliteration{
	models.RegionTagAsia: {
		{Phrase: "mario kart", Native: "マリオカート"},
		{Phrase: "mario party", Native: "マリオパーティ"},
		{Phrase: "mario odyssey", Native: "スーパーマリオ オデッセイ"},
		{Phrase: "zelda", Native: "ゼルダの伝説"},
		{Phrase: "pokemon", Native: "ポケットモンスター"},
		{Phrase: "pokémon", Native: "ポケットモンスター"},
		{Phrase: "kirby", Native: "カービィ"},
		{Phrase: "splatoon", Native: "スプラトゥーン"},
		{Phrase: "smash", Native: "スマッシュブラザーズ"},
		{Phrase: "metroid", Native: "メトロイド"},
		{Phrase: "animal crossing", Native: "あつまれ どうぶつの森"},
		{Phrase: "fire emblem", Native: "ファイアーエムブレム"},
		{Phrase: "xenoblade", Native: "ゼノブレイド"},
		{Phrase: "donkey kong", Native: "ドンキーコング"},
		{Phrase: "mario", Native: "マリオ"},
	},
}
