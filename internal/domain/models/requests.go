package models

// Requests for dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type FilterRequest struct {
	Region       string `query:"region" json:"region"`
	State        string `query:"state" json:"state"`
	Event        string `query:"event" json:"event"`
	ArtForm      string `query:"art_form" json:"art_form"`
	TourismLevel string `query:"tourism_level" json:"tourism_level"`
	Year         int    `query:"year" json:"year" validate:"omitempty,gte=1900,lte=2200"`
	Quarter      int    `query:"quarter" json:"quarter" validate:"omitempty,gte=1,lte=4"`
	Month        int    `query:"month" json:"month" validate:"omitempty,gte=1,lte=12"`
}

// Filter maps empty and "All" values to unset dimensions.
func (r FilterRequest) Filter() Filter {
	return Filter{
		Region:       StringPtr(r.Region),
		State:        StringPtr(r.State),
		Event:        StringPtr(r.Event),
		ArtForm:      StringPtr(r.ArtForm),
		TourismLevel: StringPtr(r.TourismLevel),
		Year:         IntPtr(r.Year),
		Quarter:      IntPtr(r.Quarter),
		Month:        IntPtr(r.Month),
	}
}

type SeriesRequest struct {
	FilterRequest
	Granularity string `query:"granularity" json:"granularity" default:"monthly" validate:"oneof=daily monthly"`
	Metric      string `query:"metric" json:"metric" default:"visitors" validate:"oneof=visitors revenue employment"`
}

type ForecastRequest struct {
	FilterRequest
	Granularity string `query:"granularity" json:"granularity" default:"monthly" validate:"oneof=daily monthly"`
	// Horizon is optional; an absent parameter falls back to the configured default.
	Horizon int `query:"horizon" json:"horizon" validate:"omitempty,lte=1825"`
}

type StatsRequest struct {
	FilterRequest
}

type EventsRequest struct {
	FilterRequest
	Limit  int `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
	Offset int `query:"offset" json:"offset" validate:"gte=0"`
}

type DimensionRequest struct {
	Name string `param:"name" json:"name" validate:"required,oneof=region state event art_form tourism_level"`
}
