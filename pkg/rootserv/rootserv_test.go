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

package rootserv

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttachStripsPrefix(t *testing.T) {
	var seen string
	rs := New(":0", "Test")
	rs.Attach("boiler", "Boiler", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Path
	}))
	rs.routes()

	srv := httptest.NewServer(rs.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/boiler/api/status")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "/api/status", seen)
}

func TestIndexListsSubservers(t *testing.T) {
	rs := New(":0", "Boiler control")
	rs.Attach("/weather", "Weather data", http.NotFoundHandler())
	rs.Handle("/metrics", "Prometheus metrics", http.NotFoundHandler())
	rs.routes()

	rec := httptest.NewRecorder()
	rs.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/index", nil))

	body, _ := io.ReadAll(rec.Body)
	require.Contains(t, string(body), "<h1>Boiler control</h1>")
	require.Contains(t, string(body), `<a href="/metrics">/metrics</a> - Prometheus metrics`)
	require.Contains(t, string(body), `<a href="/weather">/weather</a> - Weather data`)
}

func TestRootRedirectsToIndex(t *testing.T) {
	rs := New(":0", "x")
	rs.routes()

	rec := httptest.NewRecorder()
	rs.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	require.Equal(t, "/index", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	rs.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
