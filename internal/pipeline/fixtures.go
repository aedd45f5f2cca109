package pipeline

import (
	"context"
	"fmt"
	"maps"
	"math"
	"time"

	"card-market-lab/internal/domain"
	"card-market-lab/internal/storage"
)

// FixtureEnd is the last observation month of the fixture dataset.
var FixtureEnd = domain.Month{Year: 2024, Month: time.November}

type fixtureSet struct {
	slug    string
	release time.Time
	bbBase  float64 // booster box price at release
	trend   float64 // monthly growth
}

type fixtureCard struct {
	name   string
	number string
	base   float64 // NM price at release
	flags  domain.FlagValues
}

var fixtureSets = []fixtureSet{
	{slug: "team-up", release: releaseDay(2019, time.February, 1), bbBase: 110, trend: 0.045},
	{slug: "chilling-reign", release: releaseDay(2021, time.June, 18), bbBase: 100, trend: 0.012},
	{slug: "evolving-skies", release: releaseDay(2021, time.August, 27), bbBase: 120, trend: 0.05},
	{slug: "fusion-strike", release: releaseDay(2021, time.November, 12), bbBase: 95, trend: 0.02},
	{slug: "brilliant-stars", release: releaseDay(2022, time.February, 25), bbBase: 105, trend: 0.015},
	{slug: "lost-origin", release: releaseDay(2022, time.September, 9), bbBase: 100, trend: 0.025},
}

var fixtureCards = map[string][]fixtureCard{
	"team-up": {
		{name: "latias-latios-gx", number: "170", base: 90, flags: flags(domain.FlagFullArt, domain.FlagLegendary)},
		{name: "pikachu-zekrom-gx", number: "162", base: 60, flags: flags(domain.FlagFullArt, domain.FlagOGChar)},
		{name: "eevee-snorlax-gx", number: "171", base: 25, flags: flags(domain.FlagEeveelution)},
	},
	"chilling-reign": {
		{name: "blaziken-vmax", number: "201", base: 45, flags: flags(domain.FlagSecret)},
		{name: "ice-rider-calyrex-vmax", number: "203", base: 40, flags: flags(domain.FlagSecret, domain.FlagLegendary)},
		{name: "galarian-articuno-v", number: "173", base: 20, flags: flags(domain.FlagFullArt, domain.FlagLegendary)},
	},
	"evolving-skies": {
		{name: "umbreon-vmax", number: "215", base: 180, flags: flags(domain.FlagSecret, domain.FlagEeveelution)},
		{name: "rayquaza-vmax", number: "218", base: 120, flags: flags(domain.FlagSecret, domain.FlagLegendary)},
		{name: "sylveon-vmax", number: "212", base: 60, flags: flags(domain.FlagFullArt, domain.FlagEeveelution)},
	},
	"fusion-strike": {
		{name: "gengar-vmax", number: "271", base: 70, flags: flags(domain.FlagSecret, domain.FlagOGChar)},
		{name: "espeon-v", number: "270", base: 35, flags: flags(domain.FlagFullArt, domain.FlagEeveelution)},
		{name: "mew-vmax", number: "269", base: 30, flags: flags(domain.FlagSecret, domain.FlagLegendary)},
	},
	"brilliant-stars": {
		{name: "charizard-v", number: "154", base: 55, flags: flags(domain.FlagFullArt, domain.FlagOGChar)},
		{name: "arceus-vstar", number: "176", base: 25, flags: flags(domain.FlagSecret, domain.FlagLegendary)},
		{name: "charizard-vstar", number: "GG70", base: 35, flags: flags(domain.FlagGallery, domain.FlagOGChar)},
	},
	"lost-origin": {
		{name: "giratina-v", number: "186", base: 150, flags: flags(domain.FlagFullArt, domain.FlagLegendary)},
		{name: "pikachu-vmax", number: "TG29", base: 30, flags: flags(domain.FlagGallery, domain.FlagOGChar)},
		{name: "aerodactyl-v", number: "180", base: 15, flags: flags(domain.FlagIR)},
	},
}

// Grades and their price multiplier over NM.
var fixtureGrades = []struct {
	grade string
	mult  float64
}{
	{grade: "NM", mult: 1},
	{grade: "PSA 10", mult: 2.5},
}

var fixtureCardTypes = []struct {
	cardType string
	count    int
}{
	{cardType: "full art", count: 420},
	{cardType: "secret rare", count: 310},
	{cardType: "alt art", count: 260},
	{cardType: "gallery", count: 140},
	{cardType: "holo rare", count: 95},
	{cardType: "reverse holo", count: 75},
	{cardType: "promo", count: 52},
	{cardType: "illustration rare", count: 30}, // below the default minimum count
}

// LoadFixtures populates stores with a deterministic synthetic dataset.
// cardWriter may be nil when the backend has no psa_data table.
func LoadFixtures(ctx context.Context, obsWriter storage.ObservationWriter, cardWriter storage.CardTypeWriter) error {
	if err := obsWriter.InsertBulk(ctx, FixtureObservations()); err != nil {
		return fmt.Errorf("load fixture observations: %w", err)
	}
	if cardWriter == nil {
		return nil
	}
	if err := cardWriter.InsertCards(ctx, FixtureGradedCards()); err != nil {
		return fmt.Errorf("load fixture graded cards: %w", err)
	}
	return nil
}

// FixtureObservations builds monthly rows for every fixture set from its
// release month through FixtureEnd. Per-set metrics are computed from the
// generated prices and joined onto every row of the set-month, the way the
// feature_set table is built upstream.
func FixtureObservations() []domain.Observation {
	var out []domain.Observation
	for si, set := range fixtureSets {
		cards := fixtureCards[set.slug]
		mos := 0
		for m := domain.MonthOf(set.release); !FixtureEnd.Before(m); m = m.Next() {
			date := m.Start()
			rows := make([]domain.Observation, 0, len(cards)*len(fixtureGrades)+1)

			for ci, card := range cards {
				for _, g := range fixtureGrades {
					p := fixturePrice(card.base*g.mult, set.trend, mos, si+ci)
					rows = append(rows, domain.Observation{
						ItemID:             fmt.Sprintf("%s-%s", set.slug, card.number),
						ItemName:           card.name,
						Number:             card.number,
						Grade:              g.grade,
						SetName:            set.slug,
						SetYear:            domain.Int(set.release.Year()),
						ProductType:        domain.ProductTypeCard,
						ReleaseDate:        set.release,
						Date:               date,
						Price:              &p,
						MonthsSinceRelease: domain.Int(mos),
						Flags:              card.flags,
					})
				}
			}

			bb := fixturePrice(set.bbBase, set.trend*0.8, mos, si)
			rows = append(rows, domain.Observation{
				ItemID:             set.slug + "-bb",
				ItemName:           set.slug + "-booster-box",
				Grade:              "sealed",
				SetName:            set.slug,
				SetYear:            domain.Int(set.release.Year()),
				ProductType:        "booster-box",
				ReleaseDate:        set.release,
				Date:               date,
				Price:              &bb,
				MonthsSinceRelease: domain.Int(mos),
			})

			metrics := setMetrics(rows, bb)
			for i := range rows {
				rows[i].Metrics = maps.Clone(metrics)
				if rows[i].Flags != nil {
					rows[i].Flags = completeFlags(rows[i].Flags)
				}
			}
			out = append(out, rows...)
			mos++
		}
	}
	return out
}

// FixtureGradedCards expands fixtureCardTypes into individual psa_data rows.
func FixtureGradedCards() []domain.GradedCard {
	var out []domain.GradedCard
	cert := 80000000
	for _, ct := range fixtureCardTypes {
		for i := range ct.count {
			grade := "10"
			if i%3 == 0 {
				grade = "9"
			}
			out = append(out, domain.GradedCard{
				CertNumber: fmt.Sprintf("%d", cert),
				CardType:   ct.cardType,
				Grade:      grade,
			})
			cert++
		}
	}
	return out
}

// fixturePrice compounds base by trend per month with a seasonal wobble,
// rounded to cents.
func fixturePrice(base, trend float64, mos, phase int) float64 {
	v := base * math.Pow(1+trend, float64(mos)) * (1 + 0.08*math.Sin(float64(mos)/2+float64(phase)))
	return math.Round(v*100) / 100
}

func setMetrics(rows []domain.Observation, bb float64) domain.MetricValues {
	var nm, psa10 []float64
	for _, r := range rows {
		if r.ProductType != domain.ProductTypeCard {
			continue
		}
		switch r.Grade {
		case "NM":
			nm = append(nm, *r.Price)
		case "PSA 10":
			psa10 = append(psa10, *r.Price)
		}
	}

	etb := math.Round(bb*0.35*100) / 100
	top10Sum, _ := domain.ReduceSum.Apply(nm)
	top10Avg, _ := domain.ReduceMean.Apply(nm)
	cardMax, _ := domain.ReduceMax.Apply(nm)
	psaAvg, _ := domain.ReduceMean.Apply(psa10)
	psaMax, _ := domain.ReduceMax.Apply(psa10)

	return domain.MetricValues{
		domain.MetricAvgSealedPrice:  (bb + etb) / 2,
		domain.MetricMaxSealedPrice:  bb,
		domain.MetricAvgCardPrice:    top10Avg,
		domain.MetricMaxCardPrice:    cardMax,
		domain.MetricTop10CardSum:    top10Sum,
		domain.MetricTop10CardAvg:    top10Avg,
		domain.MetricBoosterBoxPrice: bb,
		domain.MetricETBPrice:        etb,
		domain.MetricTop10ToBoxRatio: top10Sum / bb,
		domain.MetricAvgPSA10Price:   psaAvg,
		domain.MetricMaxPSA10Price:   psaMax,
	}
}

// completeFlags returns a copy of set with every known flag present,
// absent flags false.
func completeFlags(set domain.FlagValues) domain.FlagValues {
	out := make(domain.FlagValues, len(domain.AllFlags))
	for _, f := range domain.AllFlags {
		out[f] = set[f]
	}
	return out
}

func flags(set ...domain.Flag) domain.FlagValues {
	out := make(domain.FlagValues, len(set))
	for _, f := range set {
		out[f] = true
	}
	return out
}

func releaseDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
