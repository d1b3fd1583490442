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

package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"boilerctl/internal/events"
	"boilerctl/pkg/eventbus"

	"github.com/stretchr/testify/require"
)

func TestHistoryFollowsBus(t *testing.T) {
	eb := eventbus.New()
	h := NewHistory(eb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	eb.Publish(events.TopicWeather, events.WeatherUpdate{
		Day:     "2025-03-14",
		Source:  "live",
		Samples: ToEvent([]Sample{at(10, 5, 50)}),
	})

	require.Eventually(t, func() bool {
		_, ok := h.Latest()
		return ok
	}, time.Second, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got events.WeatherUpdate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "2025-03-14", got.Day)
	require.Len(t, got.Samples, 1)
	require.Equal(t, 5.0, got.Samples[0].TempC)
}

func TestHistoryPrunesOldDays(t *testing.T) {
	h := NewHistory(eventbus.New())
	for d := 1; d <= keepDays+3; d++ {
		h.add(events.WeatherUpdate{Day: fmt.Sprintf("2025-03-%02d", d)})
	}
	days := h.Days()
	require.Len(t, days, keepDays)
	require.Equal(t, "2025-03-04", days[0].Day)

	latest, ok := h.Latest()
	require.True(t, ok)
	require.Equal(t, fmt.Sprintf("2025-03-%02d", keepDays+3), latest.Day)
}

func TestHistoryNoData(t *testing.T) {
	h := NewHistory(eventbus.New())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/latest", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
