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

// Package notify publishes resolved daily outcomes to an MQTT broker.
package notify

import (
	"boilerctl/internal/events"
	"encoding/json"
	"time"
)

// Publisher publishes payloads to MQTT.
type Publisher interface {
	// Publish sends a retained QoS 1 message.
	Publish(topic string, payload []byte) error

	// Close disconnects from the broker.
	Close() error
}

// Payload is the JSON body published for each outcome.
type Payload struct {
	Date            string   `json:"date"`
	Status          string   `json:"status"`
	DurationMinutes *int     `json:"duration_minutes"`
	Boiler1Minutes  int      `json:"boiler_1_minutes"`
	Boiler2Minutes  int      `json:"boiler_2_minutes"`
	MeanTempC       *float64 `json:"mean_temp_c"`
	MeanCloudPct    *float64 `json:"mean_cloud_pct"`
	Error           string   `json:"error,omitempty"`
	Code            string   `json:"code,omitempty"`
	RunID           string   `json:"run_id"`
	Attempts        int      `json:"attempts"`
	UpdatedToday    bool     `json:"updated_today"`
	Timestamp       string   `json:"timestamp"`
}

// FormatPayload renders an outcome as JSON.
func FormatPayload(o events.OutcomeUpdate) ([]byte, error) {
	return json.Marshal(Payload{
		Date:            o.Date,
		Status:          o.Status,
		DurationMinutes: o.DurationMinutes,
		Boiler1Minutes:  o.Boiler1Minutes,
		Boiler2Minutes:  o.Boiler2Minutes,
		MeanTempC:       o.MeanTempC,
		MeanCloudPct:    o.MeanCloudPct,
		Error:           o.Error,
		Code:            o.Code,
		RunID:           o.RunID,
		Attempts:        o.Attempts,
		UpdatedToday:    o.UpdatedToday,
		Timestamp:       o.Time.UTC().Format(time.RFC3339),
	})
}
