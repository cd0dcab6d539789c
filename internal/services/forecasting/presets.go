package forecasting

import (
	"TourCast/internal/domain/models"
	"TourCast/pkg/config"
)

// Seasonality is one truncated Fourier component.
type Seasonality struct {
	Name       string  `json:"name"`
	PeriodDays float64 `json:"period_days"`
	Order      int     `json:"order"`
}

// ModelSpec is the fixed model configuration for one granularity.
type ModelSpec struct {
	Seasonalities         []Seasonality `json:"seasonalities"`
	NChangepoints         int           `json:"n_changepoints"`
	ChangepointRange      float64       `json:"changepoint_range"`
	ChangepointPriorScale float64       `json:"changepoint_prior_scale"`
	SeasonalityPriorScale float64       `json:"seasonality_prior_scale"`
	IntervalWidth         float64       `json:"interval_width"`
}

const (
	yearPeriodDays  = 365.25
	weekPeriodDays  = 7
	monthPeriodDays = 30.5
)

// Settings are the tunable constants shared by every preset.
type Settings struct {
	NChangepoints             int
	ChangepointRange          float64
	ChangepointPriorScale     float64
	SeasonalityPriorScale     float64
	IntervalWidth             float64
	DisableMonthlySeasonality bool
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		NChangepoints:         25,
		ChangepointRange:      0.8,
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10,
		IntervalWidth:         0.8,
	}
}

// SettingsFromConfig extracts model settings from the forecast config.
func SettingsFromConfig(cfg config.ForecastConfig) Settings {
	return Settings{
		NChangepoints:             cfg.NChangepoints,
		ChangepointRange:          cfg.ChangepointRange,
		ChangepointPriorScale:     cfg.ChangepointPriorScale,
		SeasonalityPriorScale:     cfg.SeasonalityPriorScale,
		IntervalWidth:             cfg.IntervalWidth,
		DisableMonthlySeasonality: cfg.DisableMonthlySeasonality,
	}
}

// Preset returns the model for granularity g. Yearly seasonality is always
// on; weekly and the custom monthly component only make sense for daily data.
func Preset(g models.Granularity, s Settings) ModelSpec {
	spec := ModelSpec{
		NChangepoints:         s.NChangepoints,
		ChangepointRange:      s.ChangepointRange,
		ChangepointPriorScale: s.ChangepointPriorScale,
		SeasonalityPriorScale: s.SeasonalityPriorScale,
		IntervalWidth:         s.IntervalWidth,
	}
	if g == models.Daily {
		spec.Seasonalities = []Seasonality{
			{Name: "yearly", PeriodDays: yearPeriodDays, Order: 10},
			{Name: "weekly", PeriodDays: weekPeriodDays, Order: 3},
		}
		if !s.DisableMonthlySeasonality {
			spec.Seasonalities = append(spec.Seasonalities, Seasonality{Name: "monthly", PeriodDays: monthPeriodDays, Order: 5})
		}
		return spec
	}
	spec.Seasonalities = []Seasonality{{Name: "yearly", PeriodDays: yearPeriodDays, Order: 5}}
	return spec
}
