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

package journal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedJournal(t *testing.T, at *time.Time) *Journal {
	j := New(t.TempDir(), time.UTC)
	j.now = func() time.Time { return *at }
	return j
}

func TestEventsAndSummaryFiles(t *testing.T) {
	now := time.Date(2025, 3, 14, 18, 10, 0, 0, time.UTC)
	j := fixedJournal(t, &now)

	j.Event(LevelInfo, "calculated duration", "", map[string]any{"minutes": 100})
	j.Event(LevelError, "set <entity> failed", "HA_UPDATE_FAIL", nil)
	require.NoError(t, j.Summary("failed", "hub update failed"))

	logRaw, err := os.ReadFile(j.LogPath())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(logRaw)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "===== DAILY LOG 2025-03-14 START =====", lines[0])
	require.Contains(t, lines[1], `INFO: calculated duration | {"minutes":100}`)
	require.Contains(t, lines[2], "ERROR (HA_UPDATE_FAIL): set <entity> failed")

	var s Summary
	raw, err := os.ReadFile(j.JSONPath())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &s))
	require.Equal(t, "2025-03-14", s.Date)
	require.Equal(t, "failed", s.Status)
	require.Equal(t, "hub update failed", s.Error)
	require.Len(t, s.Events, 2)
	require.Equal(t, "HA_UPDATE_FAIL", s.Events[1].Code)

	html, err := os.ReadFile(j.HTMLPath())
	require.NoError(t, err)
	require.Contains(t, string(html), "Daily Summary for 2025-03-14")
	require.Contains(t, string(html), `<strong class="err">failed</strong>`)
	require.Contains(t, string(html), "set &lt;entity&gt; failed")
	require.Contains(t, j.HTMLPath(), "dailyoutput_2025-03-14.html")
}

func TestRolloverAtMidnight(t *testing.T) {
	now := time.Date(2025, 3, 14, 23, 59, 0, 0, time.UTC)
	j := fixedJournal(t, &now)

	j.Event(LevelInfo, "late", "", nil)
	require.NoError(t, j.Summary("success", ""))
	require.Equal(t, "success", j.Snapshot().Status)

	now = now.Add(2 * time.Minute)
	snap := j.Snapshot()
	require.Equal(t, "2025-03-15", snap.Date)
	require.Equal(t, "pending", snap.Status)
	require.Empty(t, snap.Events)

	j.Event(LevelInfo, "early", "", nil)
	snap = j.Snapshot()
	require.Len(t, snap.Events, 1)
	require.Equal(t, "early", snap.Events[0].Message)
}

func TestServeHTTP(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	j := fixedJournal(t, &now)
	j.Event(LevelWarn, "boiler already on", "BOILER_ALREADY_ON", nil)

	rec := httptest.NewRecorder()
	j.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	var events []Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	require.Equal(t, LevelWarn, events[0].Level)

	rec = httptest.NewRecorder()
	j.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Contains(t, rec.Body.String(), "BOILER_ALREADY_ON")
	require.Contains(t, rec.Body.String(), "pending")
}
