package models

import (
	"strconv"
	"strings"
)

// Filter restricts which event records contribute to a series. A nil field
// means the dimension is not filtered; all set fields must match.
type Filter struct {
	Region       *string `json:"region,omitempty"`
	State        *string `json:"state,omitempty"`
	Event        *string `json:"event,omitempty"`
	ArtForm      *string `json:"art_form,omitempty"`
	TourismLevel *string `json:"tourism_level,omitempty"`
	Year         *int    `json:"year,omitempty"`
	Quarter      *int    `json:"quarter,omitempty"`
	Month        *int    `json:"month,omitempty"`
}

// Dimension names a categorical column that can be filtered and listed.
type Dimension string

const (
	DimRegion       Dimension = "region"
	DimState        Dimension = "state"
	DimEvent        Dimension = "event"
	DimArtForm      Dimension = "art_form"
	DimTourismLevel Dimension = "tourism_level"
)

// Dimensions lists the categorical dimensions in canonical order.
func Dimensions() []Dimension {
	return []Dimension{DimRegion, DimState, DimEvent, DimArtForm, DimTourismLevel}
}

// IsValid reports whether d is a known dimension.
func (d Dimension) IsValid() bool {
	for _, k := range Dimensions() {
		if d == k {
			return true
		}
	}
	return false
}

// Categorical returns the value set for dimension d, nil when unset.
func (f Filter) Categorical(d Dimension) *string {
	switch d {
	case DimRegion:
		return f.Region
	case DimState:
		return f.State
	case DimEvent:
		return f.Event
	case DimArtForm:
		return f.ArtForm
	case DimTourismLevel:
		return f.TourismLevel
	default:
		return nil
	}
}

// IsEmpty reports whether no dimension is filtered.
func (f Filter) IsEmpty() bool {
	return f.CanonicalKey() == Filter{}.CanonicalKey()
}

// MatchesCategorical checks the string dimensions against a raw row.
func (f Filter) MatchesCategorical(r EventRow) bool {
	return eqOpt(f.Region, r.Region) &&
		eqOpt(f.State, r.State) &&
		eqOpt(f.Event, r.Event) &&
		eqOpt(f.ArtForm, r.ArtForm) &&
		eqOpt(f.TourismLevel, r.TourismLevel)
}

// MatchesDate checks year, quarter and month against a calendar date.
func (f Filter) MatchesDate(year, quarter, month int) bool {
	if f.Year != nil && *f.Year != year {
		return false
	}
	if f.Quarter != nil && *f.Quarter != quarter {
		return false
	}
	if f.Month != nil && *f.Month != month {
		return false
	}
	return true
}

// CanonicalKey renders every field in a fixed order with "*" for unset
// values, so two filters with equal constraints share a key.
func (f Filter) CanonicalKey() string {
	parts := []string{
		"region=" + optString(f.Region),
		"state=" + optString(f.State),
		"event=" + optString(f.Event),
		"art_form=" + optString(f.ArtForm),
		"tourism_level=" + optString(f.TourismLevel),
		"year=" + optInt(f.Year),
		"quarter=" + optInt(f.Quarter),
		"month=" + optInt(f.Month),
	}
	return strings.Join(parts, "|")
}

// StringPtr returns nil for "" and the legacy "All" value, a pointer otherwise.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return nil
	}
	return &s
}

// IntPtr returns nil for zero, a pointer otherwise.
func IntPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func eqOpt(want *string, got string) bool {
	return want == nil || *want == got
}

func optString(p *string) string {
	if p == nil {
		return "*"
	}
	return strconv.Quote(*p)
}

func optInt(p *int) string {
	if p == nil {
		return "*"
	}
	return strconv.Itoa(*p)
}
