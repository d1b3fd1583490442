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

package metrics

import (
	"boilerctl/internal/events"
	"boilerctl/pkg/eventbus"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Exporter) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func waitFor(t *testing.T, m *Exporter, line string) string {
	t.Helper()
	var body string
	require.Eventually(t, func() bool {
		body = scrape(t, m)
		return strings.Contains(body, line)
	}, 2*time.Second, 10*time.Millisecond, "missing %q", line)
	return body
}

func TestOutcomeSeries(t *testing.T) {
	eb := eventbus.New()
	m := New(eb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	total, temp, cloud := 150, 12.5, 40.0
	eb.Publish(events.TopicOutcome, events.OutcomeUpdate{
		Date:            "2025-03-14",
		Status:          "success",
		DurationMinutes: &total,
		Boiler1Minutes:  120,
		Boiler2Minutes:  30,
		MeanTempC:       &temp,
		MeanCloudPct:    &cloud,
		Attempts:        2,
		UpdatedToday:    true,
		Time:            time.Unix(1700000000, 0),
	})

	body := waitFor(t, m, `boilerctl_outcomes_total{code="",status="success"} 1`)
	require.Contains(t, body, "boilerctl_duration_minutes 150")
	require.Contains(t, body, `boilerctl_boiler_minutes{boiler="1"} 120`)
	require.Contains(t, body, `boilerctl_boiler_minutes{boiler="2"} 30`)
	require.Contains(t, body, "boilerctl_mean_temperature_celsius 12.5")
	require.Contains(t, body, "boilerctl_mean_cloud_percent 40")
	require.Contains(t, body, "boilerctl_updated_today 1")
	require.Contains(t, body, "boilerctl_attempts 2")
	require.Contains(t, body, "boilerctl_last_outcome_timestamp_seconds 1.7e+09")
	require.Contains(t, body, "boilerctl_eventbus_published_total 1")
}

func TestFailedOutcomeKeepsLastDuration(t *testing.T) {
	eb := eventbus.New()
	m := New(eb)

	total := 90
	m.observeOutcome(events.OutcomeUpdate{Status: "success", DurationMinutes: &total, Boiler1Minutes: 90, UpdatedToday: true})
	m.observeOutcome(events.OutcomeUpdate{Status: "failed", Code: "WEATHER_FETCH_FAIL"})

	body := scrape(t, m)
	require.Contains(t, body, "boilerctl_duration_minutes 90")
	require.Contains(t, body, `boilerctl_outcomes_total{code="WEATHER_FETCH_FAIL",status="failed"} 1`)
	require.Contains(t, body, "boilerctl_updated_today 0")
}

func TestEntitySeries(t *testing.T) {
	eb := eventbus.New()
	m := New(eb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	// entity subscription does not replay, so wait until Run is listening
	require.Eventually(t, func() bool {
		eb.Publish(events.TopicHubEntity, events.EntityUpdate{EntityID: "switch.boiler", State: "on"})
		return strings.Contains(scrape(t, m), `boilerctl_entity_on{entity="switch.boiler"} 1`)
	}, 2*time.Second, 10*time.Millisecond)

	eb.Publish(events.TopicHubEntity, events.EntityUpdate{EntityID: "switch.boiler", State: "off"})
	waitFor(t, m, `boilerctl_entity_on{entity="switch.boiler"} 0`)
}
