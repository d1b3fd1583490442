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

package sysmon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServeJSON(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api", nil))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var m Metrics
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&m))
	require.Equal(t, runtime.Version(), m.GoVersion)
	require.Positive(t, m.Goroutines)

	if runtime.GOOS == "linux" {
		require.Len(t, m.Disks, 1)
		require.Equal(t, dir, m.Disks[0].Path)
		require.Greater(t, m.Disks[0].Total, uint64(0))
		require.LessOrEqual(t, m.Disks[0].Used, m.Disks[0].Total)
	}
}

func TestServeHTML(t *testing.T) {
	s := New("/nonexistent-boilerctl-dir")

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Contains(t, rec.Body.String(), "<h1>System Monitor</h1>")
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}
