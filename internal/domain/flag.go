package domain

import "strings"

// Flag identifies a boolean card attribute column of feature_set.
type Flag string

const (
	FlagSecret        Flag = "is_secret"
	FlagFullArt       Flag = "is_full_art"
	FlagFullArtSecret Flag = "is_full_art_secret"
	FlagIR            Flag = "is_ir"
	FlagSIR           Flag = "is_sir"
	FlagUltraRare     Flag = "is_ultra_rare"
	FlagShinyRare     Flag = "is_shiny_rare"
	FlagEeveelution   Flag = "is_eeveelution"
	FlagLegendary     Flag = "is_legendary"
	FlagOGChar        Flag = "is_og_char"
	FlagGallery       Flag = "is_gallery"
)

// FlagPrefix is shared by every flag column name.
const FlagPrefix = "is_"

// AllFlags lists every flag column in feature_set order.
var AllFlags = []Flag{
	FlagSecret,
	FlagFullArt,
	FlagFullArtSecret,
	FlagIR,
	FlagSIR,
	FlagUltraRare,
	FlagShinyRare,
	FlagEeveelution,
	FlagLegendary,
	FlagOGChar,
	FlagGallery,
}

// Label returns the column name without the is_ prefix.
func (f Flag) Label() string {
	return strings.TrimPrefix(string(f), FlagPrefix)
}

// FlagValues holds flag values for one row. Absent key = missing.
type FlagValues map[Flag]bool
