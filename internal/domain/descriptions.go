package domain

// ColumnDescriptions maps feature_set column names to human-readable text.
// Columns without an entry get a blank description in summaries.
var ColumnDescriptions = map[string]string{
	"grade":             "Grade of the card (NM / PSA7-10 / BGS9.5)",
	"mos_since_release": "Months since the release of the card set",

	string(FlagSecret):        "Whether the card is a secret rare",
	string(FlagFullArt):       "Whether the card is a full art",
	string(FlagFullArtSecret): "Whether the card is a full art secret rare",
	string(FlagIR):            "Whether the card is an Illustration Rare (IR)",
	string(FlagSIR):           "Whether the card is a Special Illustration Rare (SIR)",
	string(FlagUltraRare):     "Whether the card is an ultra-rare",
	string(FlagShinyRare):     "Whether the card is a shiny rare",
	string(FlagEeveelution):   "Whether the card is an Eeveelution",
	string(FlagLegendary):     "Whether the card is a Legendary Pokémon from gen1-4",
	string(FlagOGChar):        "Whether the card features a nostalgic non-legendary character (e.g., Charizard, Blastoise, Venusaur, Gengar, Alakazam, Snorlax, Pikachu, Dragonite, Gyarados)",
	string(FlagGallery):       "Whether the card is part of the gallery series",

	string(MetricAvgSealedPrice):  "Average market price of sealed products per set",
	string(MetricMaxSealedPrice):  "Maximum market price of sealed products per set",
	string(MetricAvgCardPrice):    "Average market price of the card per set",
	string(MetricMaxCardPrice):    "Maximum market price of the card per set",
	string(MetricTop10CardSum):    "Top 10 most valuable cards (nm) per set, summed",
	string(MetricTop10CardAvg):    "Top 10 most valuable cards (nm) per set, avg",
	string(MetricBoosterBoxPrice): "Booster box sell price by set",
	string(MetricETBPrice):        "Elite Trainer Box market price by set",
	string(MetricTop10ToBoxRatio): "Ratio of the top 10 card sum to booster box cost",
	string(MetricAvgPSA10Price):   "Average market price of PSA 10 cards per set",
	string(MetricMaxPSA10Price):   "Maximum market price of PSA 10 cards per set",
}
