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
	"html/template"
	"net/http"
)

var summaryTpl = template.Must(template.New("summary").Funcs(template.FuncMap{
	"json": func(v any) string {
		raw, err := json.Marshal(v)
		if err != nil {
			return "(data omitted)"
		}
		return string(raw)
	},
}).Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Daily Output Summary</title>
<style>body{font-family:Arial,Helvetica,sans-serif;padding:20px} .ok{color:green} .err{color:red}</style>
</head><body>
<h1>Daily Summary for {{.Date}}</h1>
<p>Generated: {{.GeneratedAt.Format "2006-01-02 15:04:05"}}</p>
<p>Status: <strong class="{{if eq .Status "success"}}ok{{else}}err{{end}}">{{.Status}}</strong></p>
{{if .Error}}<p>Error: <pre>{{.Error}}</pre></p>{{end}}
<h2>Events</h2>
<ul>
{{range .Events}}<li><strong>[{{.TS.Format "15:04:05"}}] {{.Level}}</strong> {{.Message}}
{{if .Code}} &nbsp; <em>code:</em> {{.Code}}{{end}}
{{if .Data}}<pre>{{json .Data}}</pre>{{end}}</li>
{{end}}</ul>
</body></html>
`))

// ServeHTTP serves today's summary as HTML on "/", as JSON on
// "/api/summary" and the bare event list on "/api/events".
func (j *Journal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s := j.Snapshot()

	switch r.URL.Path {
	case "", "/":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := summaryTpl.Execute(w, s); err != nil {
			j.log.Error("summary template: %v", err)
		}
	case "/api/summary":
		writeJSON(w, s)
	case "/api/events":
		writeJSON(w, s.Events)
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
