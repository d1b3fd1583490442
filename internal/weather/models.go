package weather

import "time"

// Sample is one hourly observation in the hub's time zone.
type Sample struct {
	Time     time.Time `json:"time"`
	TempC    float64   `json:"temp_c"`
	CloudPct float64   `json:"cloud_pct"`
}

// SunWindow holds the rounded sunrise and sunset hours of one day.
type SunWindow struct {
	Sunrise int `json:"sunrise"`
	Sunset  int `json:"sunset"`
}

// Offsets trim the sun window: analysis runs from Start hours after
// sunrise to End hours before sunset.
type Offsets struct {
	Start int
	End   int
}

var DefaultOffsets = Offsets{Start: 2, End: 1}

// Means is the result of Aggregate.
type Means struct {
	TempC       float64
	CloudPct    float64
	Samples     int
	WindowStart int
	WindowEnd   int
}
