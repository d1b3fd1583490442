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
	"boilerctl/pkg/logger"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARNING"
	LevelError = "ERROR"
)

// Entry is one journal event.
type Entry struct {
	TS      time.Time `json:"ts"`
	Level   string    `json:"level"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

// Summary is the persisted state of one day.
type Summary struct {
	Date        string    `json:"date"`
	GeneratedAt time.Time `json:"generated_at"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	Events      []Entry   `json:"events"`
}

// Journal is the per-day record of what the control loop did: a text
// log appended as events happen plus JSON and HTML summaries rewritten on
// every Summary call. It rolls over at local midnight.
type Journal struct {
	log  *logger.Logger
	dir  string
	zone *time.Location
	now  func() time.Time

	mu     sync.RWMutex
	date   string
	events []Entry
	last   *Summary
}

func New(dir string, zone *time.Location) *Journal {
	if zone == nil {
		zone = time.Local
	}
	return &Journal{
		log:  logger.New("Journal"),
		dir:  dir,
		zone: zone,
		now:  time.Now,
	}
}

func (j *Journal) path(date, ext string) string {
	return filepath.Join(j.dir, "dailyoutput_"+date+ext)
}

// LogPath, JSONPath and HTMLPath return today's files.
func (j *Journal) LogPath() string  { return j.path(j.today(), ".log") }
func (j *Journal) JSONPath() string { return j.path(j.today(), ".json") }
func (j *Journal) HTMLPath() string { return j.path(j.today(), ".html") }

func (j *Journal) today() string {
	return j.now().In(j.zone).Format(time.DateOnly)
}

// caller holds the write lock
func (j *Journal) rollover(date string) {
	if date == j.date {
		return
	}
	j.date = date
	j.events = nil
	j.last = nil
	j.appendLine(fmt.Sprintf("===== DAILY LOG %s START =====\n", date))
}

// caller holds the write lock
func (j *Journal) appendLine(line string) {
	if err := os.MkdirAll(j.dir, 0755); err != nil {
		j.log.Error("journal dir: %v", err)
		return
	}
	f, err := os.OpenFile(j.path(j.date, ".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		j.log.Error("journal open: %v", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		j.log.Error("journal write: %v", err)
	}
}

// Event records one event and mirrors it to the process log.
func (j *Journal) Event(level, message, code string, data any) {
	now := j.now().In(j.zone)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.rollover(now.Format(time.DateOnly))

	e := Entry{TS: now, Level: level, Code: code, Message: message, Data: data}
	j.events = append(j.events, e)
	j.appendLine(formatLine(e))

	switch level {
	case LevelError:
		j.log.Error("%s", describe(e))
	case LevelWarn:
		j.log.Warn("%s", describe(e))
	default:
		j.log.Info("%s", describe(e))
	}
}

func describe(e Entry) string {
	if e.Code != "" {
		return "(" + e.Code + ") " + e.Message
	}
	return e.Message
}

func formatLine(e Entry) string {
	line := fmt.Sprintf("[%s] %s", e.TS.Format("2006-01-02T15:04:05.000000"), e.Level)
	if e.Code != "" {
		line += " (" + e.Code + ")"
	}
	line += ": " + e.Message
	if e.Data != nil {
		if raw, err := json.Marshal(e.Data); err == nil {
			line += " | " + string(raw)
		} else {
			line += " | (data omitted)"
		}
	}
	return line + "\n"
}

// Summary writes today's JSON and HTML summaries with the given status.
func (j *Journal) Summary(status, errMsg string) error {
	now := j.now().In(j.zone)

	j.mu.Lock()
	j.rollover(now.Format(time.DateOnly))
	s := Summary{
		Date:        j.date,
		GeneratedAt: now,
		Status:      status,
		Error:       errMsg,
		Events:      append([]Entry(nil), j.events...),
	}
	j.last = &s
	date := j.date
	j.mu.Unlock()

	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if err := os.WriteFile(j.path(date, ".json"), raw, 0644); err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	f, err := os.Create(j.path(date, ".html"))
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	defer f.Close()
	if err := summaryTpl.Execute(f, s); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// Snapshot returns today's state. Status is "pending" until Summary has
// been called today.
func (j *Journal) Snapshot() Summary {
	date := j.today()

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.date != date {
		return Summary{Date: date, Status: "pending", Events: []Entry{}}
	}
	if j.last != nil {
		s := *j.last
		s.Events = append([]Entry(nil), j.events...)
		return s
	}
	return Summary{Date: j.date, Status: "pending", Events: append([]Entry{}, j.events...)}
}
