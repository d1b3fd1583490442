// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package events

import (
	"boilerctl/pkg/eventbus"
	"time"
)

var (
	TopicWeather   eventbus.Topic = "weather"
	TopicOutcome   eventbus.Topic = "outcome"
	TopicHubEntity eventbus.Topic = "hub_entity"
)

type WeatherSample struct {
	Time     time.Time `json:"time"`
	TempC    float64   `json:"temp_c"`
	CloudPct float64   `json:"cloud_pct"`
}

// WeatherUpdate is published after every successful sample load.
type WeatherUpdate struct {
	Day         string          `json:"day"`
	Source      string          `json:"source"` // "storage" or "live"
	Sunrise     int             `json:"sunrise"`
	Sunset      int             `json:"sunset"`
	WindowStart int             `json:"window_start"`
	WindowEnd   int             `json:"window_end"`
	Samples     []WeatherSample `json:"samples"`
}

// OutcomeUpdate mirrors the state machine's daily outcome after each
// resolved cycle.
type OutcomeUpdate struct {
	Date            string    `json:"date"`
	Status          string    `json:"status"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	Boiler1Minutes  int       `json:"boiler_1_minutes"`
	Boiler2Minutes  int       `json:"boiler_2_minutes"`
	MeanTempC       *float64  `json:"mean_temp_c,omitempty"`
	MeanCloudPct    *float64  `json:"mean_cloud_pct,omitempty"`
	Error           string    `json:"error,omitempty"`
	Code            string    `json:"code,omitempty"`
	RunID           string    `json:"run_id"`
	Attempts        int       `json:"attempts"`
	UpdatedToday    bool      `json:"updated_today"`
	Time            time.Time `json:"time"`
}

// EntityUpdate is a live state change of a watched hub entity.
type EntityUpdate struct {
	EntityID string    `json:"entity_id"`
	State    string    `json:"state"`
	Previous string    `json:"previous,omitempty"`
	Time     time.Time `json:"time"`
}
