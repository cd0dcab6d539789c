package synth

import (
	"math"
	"math/rand"
	"time"

	"TourCast/internal/domain/models"
	"TourCast/pkg/util"
)

// State is a generated administrative area with its region.
type State struct {
	Name   string
	Region string
}

// States are the twenty states used by the generator.
var States = []State{
	{"Rajasthan", "North"}, {"Kerala", "South"}, {"Uttar Pradesh", "North"}, {"Gujarat", "West"},
	{"Maharashtra", "West"}, {"Tamil Nadu", "South"}, {"Karnataka", "South"}, {"Madhya Pradesh", "Central"},
	{"Odisha", "East"}, {"West Bengal", "East"}, {"Punjab", "North"}, {"Bihar", "East"},
	{"Haryana", "North"}, {"Assam", "Northeast"}, {"Chhattisgarh", "Central"}, {"Jharkhand", "East"},
	{"Himachal Pradesh", "North"}, {"Telangana", "South"}, {"Andhra Pradesh", "South"}, {"Goa", "West"},
}

// ArtForms are the art forms attached to generated events.
var ArtForms = []string{
	"Kathakali", "Madhubani Painting", "Warli Art", "Bharatanatyam",
	"Kalaripayattu", "Pattachitra", "Odissi Dance", "Folk Music",
	"Carpet Weaving", "Block Printing",
}

// Events are the festival names attached to generated records.
var Events = []string{
	"Pushkar Fair", "Onam", "Durga Puja", "Hornbill Festival", "Rann Utsav",
	"Hampi Utsav", "Konark Dance Festival", "Khajuraho Dance Festival",
	"Goa Carnival", "Bihu", "Pongal", "Baisakhi",
}

// TourismLevels are the tourism-intensity tiers.
var TourismLevels = []string{"Low", "Medium", "High"}

const (
	festivalUplift = 1.6
	weekendUplift  = 1.25
	yearlyGrowth   = 0.05
	revenuePerHead = 850.0
	visitorsPerJob = 40.0
)

// Generator produces deterministic synthetic event records.
type Generator struct {
	rng  *rand.Rand
	base map[string]float64
}

// New creates a generator; equal seeds produce equal output.
func New(seed int64) *Generator {
	rng := rand.New(rand.NewSource(seed))
	base := make(map[string]float64, len(States))
	for _, s := range States {
		base[s.Name] = float64(500 + rng.Intn(4500))
	}
	return &Generator{rng: rng, base: base}
}

// IsFestivalSeason reports whether t falls in the October to March peak.
func IsFestivalSeason(t time.Time) bool {
	m := t.Month()
	return m >= time.October || m <= time.March
}

// Generate returns one record per state per day for days days from start.
func (g *Generator) Generate(start time.Time, days int) []models.EventRecord {
	start = util.Day(start)
	out := make([]models.EventRecord, 0, days*len(States))
	for d := 0; d < days; d++ {
		day := start.AddDate(0, 0, d)
		years := float64(d) / 365.25
		for _, s := range States {
			v := g.base[s.Name] * math.Pow(1+yearlyGrowth, years)
			if IsFestivalSeason(day) {
				v *= festivalUplift
			}
			if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
				v *= weekendUplift
			}
			v *= 0.85 + 0.3*g.rng.Float64()
			visitors := math.Round(v)

			out = append(out, models.EventRecord{
				Date:            day,
				State:           s.Name,
				Region:          s.Region,
				Event:           Events[g.rng.Intn(len(Events))],
				ArtForm:         ArtForms[g.rng.Intn(len(ArtForms))],
				TourismLevel:    level(visitors),
				Visitors:        visitors,
				RevenueINR:      math.Round(visitors * revenuePerHead * (0.8 + 0.4*g.rng.Float64())),
				LocalEmployment: math.Round(visitors / visitorsPerJob),
			})
		}
	}
	return out
}

func level(visitors float64) string {
	switch {
	case visitors >= 4000:
		return TourismLevels[2]
	case visitors >= 1500:
		return TourismLevels[1]
	default:
		return TourismLevels[0]
	}
}
