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

package boiler

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
)

var statusTpl = template.Must(template.New("status").Funcs(template.FuncMap{
	"num": func(format string, p *float64) string {
		if p == nil {
			return ""
		}
		return fmt.Sprintf(format, *p)
	},
}).Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8" />
<meta http-equiv="refresh" content="30">
<title>Boiler</title>
<style>
body { font-family: system-ui, -apple-system, "Segoe UI", Roboto, "Helvetica Neue", Arial; padding: 24px }
td { padding: 2px 12px 2px 0 }
.success { color: green } .failed { color: red } .pending, .skipped { color: #b80 }
</style>
</head>
<body>
<h1>Boiler daily update</h1>
<table>
<tr><td>Phase</td><td>{{.Phase}}{{if .Debug}} (debug, schedule ignored){{end}}</td></tr>
<tr><td>Updated today</td><td>{{.UpdatedToday}}</td></tr>
<tr><td>Sun window</td><td>{{.SunWindow.Sunrise}}:00 - {{.SunWindow.Sunset}}:00</td></tr>
<tr><td>Trigger</td><td>{{if not .Trigger.IsZero}}{{.Trigger.Format "2006-01-02 15:04"}}{{end}}</td></tr>
<tr><td>Last tick</td><td>{{if not .LastTick.IsZero}}{{.LastTick.Format "2006-01-02 15:04:05"}}{{end}}</td></tr>
{{with .Calibration}}<tr><td>Lookup table</td><td>{{len .Table}} points, {{.MinTempC}} to {{.MaxTempC}} °C, k={{.Params.CloudImpact}}, max {{.Params.MaxMinutes}} min</td></tr>{{end}}
</table>
{{with .Outcome}}
<h2>Outcome {{.Date}}</h2>
<table>
<tr><td>Status</td><td class="{{.Status}}">{{.Status}}</td></tr>
{{if .DurationMinutes}}<tr><td>Duration</td><td>{{.DurationMinutes}} min ({{.Boiler1Minutes}} + {{.Boiler2Minutes}})</td></tr>{{end}}
{{if .MeanTempC}}<tr><td>Mean temp / cloud</td><td>{{num "%.1f" .MeanTempC}} °C / {{num "%.0f" .MeanCloudPct}} %</td></tr>{{end}}
{{if .Error}}<tr><td>Error</td><td>{{.Error}} ({{.Code}})</td></tr>{{end}}
<tr><td>Attempts</td><td>{{.Attempts}}</td></tr>
<tr><td>Run</td><td>{{.RunID}}</td></tr>
</table>
{{else}}
<p>No attempt yet today.</p>
{{end}}
<p><a href="/journal/">journal</a> &middot; <a href="/weather/">weather</a></p>
</body>
</html>
`))

// ServeHTTP serves the status page on "/" and JSON on "/api/status".
func (m *Machine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := m.Snapshot()

	switch r.URL.Path {
	case "", "/":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := statusTpl.Execute(w, snap); err != nil {
			m.log.Error("status template: %v", err)
		}
	case "/api/status":
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(snap)
	default:
		http.NotFound(w, r)
	}
}
