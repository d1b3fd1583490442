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
	"html/template"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"boilerctl/pkg/logger"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

type DiskStats struct {
	Path  string `json:"path"`
	Total uint64 `json:"total"`
	Used  uint64 `json:"used"`
	Free  uint64 `json:"free"`
}

type Metrics struct {
	GoVersion   string      `json:"go_version"`
	Uptime      string      `json:"uptime"`
	SystemCPU   float64     `json:"system_cpu_percent"`
	ProcessCPU  float64     `json:"process_cpu_percent"`
	SystemTotal uint64      `json:"system_mem_total"`
	SystemUsed  uint64      `json:"system_mem_used"`
	SystemFree  uint64      `json:"system_mem_free"`
	ProcessRSS  uint64      `json:"process_rss"`
	Goroutines  int         `json:"goroutines"`
	Disks       []DiskStats `json:"disks"`
}

// Service reports host and process health, plus disk usage for each
// watched directory (CSV store, journal).
type Service struct {
	started time.Time
	dirs    []string
	log     *logger.Logger
}

func New(dirs ...string) *Service {
	if len(dirs) == 0 {
		dirs = []string{"/"}
	}
	return &Service{
		started: time.Now(),
		dirs:    dirs,
		log:     logger.New("System Monitor"),
	}
}

func (s *Service) collect() Metrics {
	m := Metrics{
		GoVersion:  runtime.Version(),
		Uptime:     time.Since(s.started).Truncate(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
	}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		m.SystemCPU = pct[0]
	}
	if vmem, err := mem.VirtualMemory(); err == nil {
		m.SystemTotal = vmem.Total
		m.SystemUsed = vmem.Used
		m.SystemFree = vmem.Available
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if memInfo, err := p.MemoryInfo(); err == nil {
			m.ProcessRSS = memInfo.RSS
		}
		if pct, err := p.CPUPercent(); err == nil {
			m.ProcessCPU = pct
		}
	}

	for _, dir := range s.dirs {
		d, err := statDir(dir)
		if err != nil {
			s.log.Debug("disk usage %s: %v", dir, err)
			continue
		}
		m.Disks = append(m.Disks, d)
	}
	return m
}

var funcs = template.FuncMap{
	"gb":  func(v uint64) string { return formatFloat(float64(v)/(1<<30)) + " GB" },
	"mb":  func(v uint64) string { return formatFloat(float64(v)/(1<<20)) + " MB" },
	"pct": func(v float64) string { return formatFloat(v) + "%" },
}

var page = template.Must(template.New("sysmon").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head>
	<title>System Monitor</title>
	<style>
		body { font-family: sans-serif; margin: 2em; background: #f9f9f9; }
		table { border-collapse: collapse; width: 60%; margin-top: 1em; }
		th, td { border: 1px solid #ccc; padding: 0.6em 1em; text-align: left; }
		th { background: #eee; }
	</style>
</head>
<body>
	<h1>System Monitor</h1>
	<p>Go {{.GoVersion}}, up {{.Uptime}}, {{.Goroutines}} goroutines</p>
	<h2>CPU</h2>
	<table>
		<tr><th>System</th><th>Process</th></tr>
		<tr><td>{{pct .SystemCPU}}</td><td>{{pct .ProcessCPU}}</td></tr>
	</table>
	<h2>Memory</h2>
	<table>
		<tr><th>System Total</th><th>System Used</th><th>System Free</th><th>Process RSS</th></tr>
		<tr><td>{{gb .SystemTotal}}</td><td>{{gb .SystemUsed}}</td><td>{{gb .SystemFree}}</td><td>{{mb .ProcessRSS}}</td></tr>
	</table>
	<h2>Disk</h2>
	<table>
		<tr><th>Path</th><th>Total</th><th>Used</th><th>Free</th></tr>
		{{range .Disks}}<tr><td>{{.Path}}</td><td>{{gb .Total}}</td><td>{{gb .Used}}</td><td>{{gb .Free}}</td></tr>
		{{end}}
	</table>
</body>
</html>
`))

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m := s.collect()

	if r.Header.Get("Accept") == "application/json" || r.URL.Path == "/api" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, m); err != nil {
		s.log.Error("render: %v", err)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
