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
	"boilerctl/internal/events"
	"boilerctl/pkg/eventbus"
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
)

const keepDays = 14

// History keeps the sample sets published by the state machine, one per
// day, and serves them as a chart.
type History struct {
	eb *eventbus.Bus

	mu   sync.RWMutex
	days map[string]events.WeatherUpdate
}

func NewHistory(eb *eventbus.Bus) *History {
	return &History{
		eb:   eb,
		days: make(map[string]events.WeatherUpdate),
	}
}

func (h *History) Run(ctx context.Context) {
	ch, unsub := h.eb.Subscribe(ctx, events.TopicWeather, true)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if upd, ok := ev.(events.WeatherUpdate); ok {
				h.add(upd)
			}
		}
	}
}

func (h *History) add(upd events.WeatherUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.days[upd.Day] = upd

	// prune the oldest days
	if len(h.days) > keepDays {
		keys := h.sortedDays()
		for _, k := range keys[:len(keys)-keepDays] {
			delete(h.days, k)
		}
	}
}

// caller holds the lock
func (h *History) sortedDays() []string {
	keys := make([]string, 0, len(h.days))
	for k := range h.days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Latest returns the most recent day's update.
func (h *History) Latest() (events.WeatherUpdate, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	keys := h.sortedDays()
	if len(keys) == 0 {
		return events.WeatherUpdate{}, false
	}
	return h.days[keys[len(keys)-1]], true
}

// Days returns all kept days, oldest first.
func (h *History) Days() []events.WeatherUpdate {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]events.WeatherUpdate, 0, len(h.days))
	for _, k := range h.sortedDays() {
		out = append(out, h.days[k])
	}
	return out
}

var htmlPage = `<!doctype html>
<html>
<head>
<meta charset="utf-8" />
<title>Daytime weather</title>
<style>
body { font-family: system-ui, -apple-system, "Segoe UI", Roboto, "Helvetica Neue", Arial; padding: 24px }
.container { max-width: 900px; margin: 0 auto }
.card { border-radius: 8px; padding: 16px; box-shadow: 0 2px 6px rgba(0,0,0,0.08) }
</style>
</head>
<body>
<div class="container">
<h1>Weather used for the last calculation</h1>
<p id="meta"></p>
<div class="card">
<canvas id="chart" width="860" height="300"></canvas>
</div>
</div>

<script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
<script>
async function render() {
  const res = await fetch('./api/latest');
  if (!res.ok) { document.getElementById('meta').textContent = 'no data yet'; return; }
  const d = await res.json();
  document.getElementById('meta').textContent =
    d.day + ' (' + d.source + '), sunrise ' + d.sunrise + ':00, sunset ' + d.sunset + ':00, window ' +
    d.window_start + ':00-' + d.window_end + ':00';
  const labels = d.samples.map(s => new Date(s.time).toLocaleTimeString());
  new Chart(document.getElementById('chart').getContext('2d'), {
    type: 'line',
    data: {
      labels,
      datasets: [
        { label: '°C', data: d.samples.map(s => s.temp_c), tension: 0.2, yAxisID: 'y' },
        { label: 'cloud %', data: d.samples.map(s => s.cloud_pct), tension: 0.2, yAxisID: 'y1' }
      ]
    },
    options: { scales: { y: { position: 'left' }, y1: { position: 'right', min: 0, max: 100 } } }
  });
}
render();
</script>
</body>
</html>`

// ServeHTTP serves "/", "/api/latest" and "/api/days".
func (h *History) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "", "/":
		rw.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = rw.Write([]byte(htmlPage))
	case "/api/latest":
		upd, ok := h.Latest()
		if !ok {
			http.Error(rw, "no data", http.StatusNotFound)
			return
		}
		writeJSON(rw, upd)
	case "/api/days":
		writeJSON(rw, h.Days())
	default:
		rw.WriteHeader(http.StatusNotFound)
		_, _ = rw.Write([]byte("not found"))
	}
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(rw)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// ToEvent converts samples for publishing.
func ToEvent(samples []Sample) []events.WeatherSample {
	out := make([]events.WeatherSample, len(samples))
	for i, s := range samples {
		out[i] = events.WeatherSample{Time: s.Time, TempC: s.TempC, CloudPct: s.CloudPct}
	}
	return out
}
