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
	"boilerctl/internal/config"
	"boilerctl/internal/duration"
	"boilerctl/internal/events"
	"boilerctl/internal/weather"
	"boilerctl/pkg/eventbus"
	"boilerctl/pkg/logger"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	// the boiler was already running; no retry until tomorrow
	StatusSkipped Status = "skipped"
)

// machine readable reasons, recorded in the journal and the outcome
const (
	CodeWeatherFetch      = "WEATHER_FETCH_FAIL"
	CodeInsufficientData  = "INSUFFICIENT_DATA"
	CodeHAUpdate          = "HA_UPDATE_FAIL"
	CodeHubRead           = "HUB_READ_FAIL"
	CodeAlreadyOn         = "BOILER_ALREADY_ON"
	CodeScriptExec        = "SCRIPT_EXEC_FAIL"
	CodeActivationTimeout = "BOILER_ACTIVATION_TIMEOUT"
	CodeFlagReset         = "FLAG_RESET"
)

// DailyOutcome is the result of today's update attempts.
type DailyOutcome struct {
	Date            string    `json:"date"`
	Status          Status    `json:"status"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	Boiler1Minutes  int       `json:"boiler_1_minutes"`
	Boiler2Minutes  int       `json:"boiler_2_minutes"`
	MeanTempC       *float64  `json:"mean_temp_c,omitempty"`
	MeanCloudPct    *float64  `json:"mean_cloud_pct,omitempty"`
	Error           string    `json:"error,omitempty"`
	Code            string    `json:"code,omitempty"`
	RunID           string    `json:"run_id"`
	Attempts        int       `json:"attempts"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type WeatherSource interface {
	FetchDay(ctx context.Context, day time.Time) ([]weather.Sample, error)
}

type SunSource interface {
	SunWindow(ctx context.Context, day time.Time) weather.SunWindow
}

type Store interface {
	Load(day time.Time) ([]weather.Sample, error)
	Save(day time.Time, samples []weather.Sample) error
}

type Hub interface {
	EntityState(ctx context.Context, entityID string) (string, error)
	SetNumber(ctx context.Context, entityID string, value, lo, hi int) error
	RunScript(ctx context.Context, scriptID string) error
}

type Journal interface {
	Event(level, message, code string, data any)
	Summary(status, errMsg string) error
}

// Settings are the state machine's knobs, see SettingsFrom.
type Settings struct {
	Entity1          string
	Entity2          string
	ActivationScript string
	GuardEntity      string
	MaxPerBoiler     int

	PollInterval        time.Duration
	DaysBack            int
	DebugIgnoreSchedule bool
	ReadFromStorage     bool
	SaveToStorage       bool

	// offsets from local midnight, [ResetStart, ResetEnd)
	ResetStart time.Duration
	ResetEnd   time.Duration

	Offsets         weather.Offsets
	ConfirmTimeout  time.Duration
	ConfirmInterval time.Duration
	Zone            *time.Location
}

func SettingsFrom(c *config.Config) Settings {
	return Settings{
		Entity1:             c.Hub.BoilerEntity1,
		Entity2:             c.Hub.BoilerEntity2,
		ActivationScript:    c.Hub.ActivationScript,
		GuardEntity:         c.Hub.GuardEntity,
		MaxPerBoiler:        c.Boiler.MaxDurationPerBoiler,
		PollInterval:        c.PollInterval(),
		DaysBack:            c.Weather.DaysBack,
		DebugIgnoreSchedule: c.Schedule.DebugIgnoreSchedule,
		ReadFromStorage:     c.Storage.Read,
		SaveToStorage:       c.Storage.Save,
		ResetStart:          c.Schedule.ResetWindowStart.Offset(),
		ResetEnd:            c.Schedule.ResetWindowEnd.Offset(),
		Offsets: weather.Offsets{
			Start: *c.Weather.WindowStartOffset,
			End:   *c.Weather.WindowEndOffset,
		},
		ConfirmTimeout:  time.Duration(c.Hub.ConfirmTimeoutSeconds) * time.Second,
		ConfirmInterval: time.Duration(c.Hub.ConfirmIntervalSeconds) * time.Second,
		Zone:            c.Zone,
	}
}

// Deps are the collaborators. Store may be nil when neither storage
// option is enabled; Bus may be nil.
type Deps struct {
	Weather WeatherSource
	Sun     SunSource
	Store   Store
	Hub     Hub
	Journal Journal
	Calc    *duration.Calculator
	Bus     *eventbus.Bus

	// defaults to time.Now and uuid.NewString
	Now      func() time.Time
	NewRunID func() string
}

// Machine decides once per tick whether today's boiler update is due and
// runs it. It owns the updated-today flag and today's outcome.
type Machine struct {
	log  *logger.Logger
	set  Settings
	deps Deps

	// serialises Tick
	tickMu sync.Mutex

	mu           sync.RWMutex
	phase        Phase
	updatedToday bool
	outcome      *DailyOutcome
	skippedOn    string
	lastTick     time.Time
	trigger      time.Time
	window       weather.SunWindow
}

func New(set Settings, deps Deps) *Machine {
	if set.Zone == nil {
		set.Zone = time.Local
	}
	if set.ConfirmTimeout <= 0 {
		set.ConfirmTimeout = 10 * time.Minute
	}
	if set.ConfirmInterval <= 0 {
		set.ConfirmInterval = 2 * time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}

	return &Machine{
		log:   logger.New("Boiler"),
		set:   set,
		deps:  deps,
		phase: PhaseIdle,
	}
}

// Tick runs one poll. Nothing in here stops the process: every failure
// ends up in the outcome and the journal, and the next tick retries.
func (m *Machine) Tick(ctx context.Context, now time.Time) {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	now = now.In(m.set.Zone)
	target := now.AddDate(0, 0, -m.set.DaysBack)
	win := m.deps.Sun.SunWindow(ctx, target)
	trigger := m.triggerTime(now, win)

	m.mu.Lock()
	m.lastTick = now
	m.trigger = trigger
	m.window = win
	updated := m.updatedToday
	skipped := m.skippedOn == now.Format(time.DateOnly)
	m.mu.Unlock()

	switch {
	case m.set.DebugIgnoreSchedule || (!updated && !skipped && !now.Before(trigger)):
		m.runCycle(ctx, now, target, win)

	case updated && m.inResetWindow(now):
		m.mu.Lock()
		m.updatedToday = false
		m.phase = PhaseIdle
		m.mu.Unlock()
		m.deps.Journal.Event(journalInfo, "Reset updated-today flag for new day", CodeFlagReset, nil)

	default:
		m.log.Debug("waiting: now=%s trigger=%s updatedToday=%v skipped=%v",
			now.Format("15:04"), trigger.Format("2006-01-02 15:04"), updated, skipped)
	}
}

// triggerTime is today at the sunset hour plus two poll intervals. It
// never passes the start of the day's last poll interval, so some tick
// of the day always reaches it.
func (m *Machine) triggerTime(now time.Time, win weather.SunWindow) time.Time {
	y, mo, d := now.Date()
	trigger := time.Date(y, mo, d, win.Sunset, 0, 0, 0, m.set.Zone).Add(2 * m.set.PollInterval)

	start := time.Date(y, mo, d, 0, 0, 0, 0, m.set.Zone)
	latest := time.Date(y, mo, d+1, 0, 0, 0, 0, m.set.Zone).Add(-m.set.PollInterval)
	if latest.Before(start) {
		latest = start
	}
	if trigger.After(latest) {
		return latest
	}
	return trigger
}

func (m *Machine) inResetWindow(now time.Time) bool {
	off := time.Duration(now.Hour())*time.Hour +
		time.Duration(now.Minute())*time.Minute +
		time.Duration(now.Second())*time.Second
	return off >= m.set.ResetStart && off < m.set.ResetEnd
}

// result of one cycle
type attempt struct {
	ok      bool
	skipped bool
	code    string
	errMsg  string
	minutes *int
	b1, b2  int
	means   *weather.Means
}

func (m *Machine) runCycle(ctx context.Context, now, target time.Time, win weather.SunWindow) {
	runID := m.deps.NewRunID()
	date := now.Format(time.DateOnly)

	m.mu.Lock()
	m.phase = PhaseRunning
	if m.outcome == nil || m.outcome.Date != date {
		m.outcome = &DailyOutcome{Date: date}
	}
	o := m.outcome
	o.Status = StatusPending
	o.Attempts++
	o.RunID = runID
	o.UpdatedAt = now
	attemptNo := o.Attempts
	m.mu.Unlock()

	m.deps.Journal.Event(journalInfo, "Starting daily update cycle", "", map[string]any{
		"date":    date,
		"trigger": now.Format(time.RFC3339),
		"run_id":  runID,
		"attempt": attemptNo,
		"sunrise": win.Sunrise,
		"sunset":  win.Sunset,
	})

	res := m.cycle(ctx, target, win)
	m.resolve(res)
}

func (m *Machine) cycle(ctx context.Context, target time.Time, win weather.SunWindow) attempt {
	j := m.deps.Journal

	samples, source, err := m.samples(ctx, target)
	if err != nil {
		j.Event(journalError, "Failed to obtain weather data", CodeWeatherFetch, map[string]any{"error": err.Error()})
		return attempt{code: CodeWeatherFetch, errMsg: "failed to obtain weather data"}
	}
	j.Event(journalInfo, "Weather data ready", "", map[string]any{"points": len(samples), "source": source})

	means, ok := weather.Aggregate(samples, win, m.set.Offsets)
	m.publishWeather(target, source, win, means, samples)
	if !ok {
		j.Event(journalWarn, "Insufficient data in sun window", CodeInsufficientData, map[string]any{
			"window_start": means.WindowStart,
			"window_end":   means.WindowEnd,
		})
		return attempt{code: CodeInsufficientData, errMsg: "insufficient data"}
	}
	j.Event(journalInfo, "Daily means calculated", "", map[string]any{
		"mean_T":  means.TempC,
		"mean_CC": means.CloudPct,
		"samples": means.Samples,
	})

	b := m.deps.Calc.Explain(means.TempC, means.CloudPct)
	b1, b2 := duration.Split(b.Minutes, m.set.MaxPerBoiler)
	res := attempt{minutes: &b.Minutes, b1: b1, b2: b2, means: &means}
	j.Event(journalInfo, "Calculated duration", "", map[string]any{
		"duration_min": b.Minutes,
		"base":         b.Base,
		"sun_factor":   b.SunFactor,
		"alpha":        b.Alpha,
		"boiler_1":     b1,
		"boiler_2":     b2,
	})

	for _, w := range []struct {
		entity string
		value  int
	}{{m.set.Entity1, b1}, {m.set.Entity2, b2}} {
		if err := m.deps.Hub.SetNumber(ctx, w.entity, w.value, 0, m.set.MaxPerBoiler); err != nil {
			j.Event(journalError, "Home Assistant update failed", CodeHAUpdate, map[string]any{
				"entity": w.entity,
				"error":  err.Error(),
			})
			res.code, res.errMsg = CodeHAUpdate, "HA update failed"
			return res
		}
	}

	if m.set.DebugIgnoreSchedule || m.set.ActivationScript == "" {
		res.ok = true
		return res
	}

	res.code, res.errMsg = m.activate(ctx)
	res.ok = res.code == ""
	res.skipped = res.code == CodeAlreadyOn
	return res
}

func (m *Machine) samples(ctx context.Context, target time.Time) ([]weather.Sample, string, error) {
	if m.set.ReadFromStorage && m.deps.Store != nil {
		s, err := m.deps.Store.Load(target)
		return s, "storage", err
	}

	s, err := m.deps.Weather.FetchDay(ctx, target)
	if err != nil {
		return nil, "live", err
	}
	if m.set.SaveToStorage && m.deps.Store != nil {
		if err := m.deps.Store.Save(target, s); err != nil {
			m.deps.Journal.Event(journalWarn, "Failed to save weather data", "", map[string]any{"error": err.Error()})
		} else {
			m.deps.Journal.Event(journalInfo, "Weather data saved to storage", "", map[string]any{"points": len(s)})
		}
	}
	return s, "live", nil
}

func (m *Machine) publishWeather(target time.Time, source string, win weather.SunWindow, means weather.Means, samples []weather.Sample) {
	if m.deps.Bus == nil {
		return
	}
	m.deps.Bus.Publish(events.TopicWeather, events.WeatherUpdate{
		Day:         target.Format(time.DateOnly),
		Source:      source,
		Sunrise:     win.Sunrise,
		Sunset:      win.Sunset,
		WindowStart: means.WindowStart,
		WindowEnd:   means.WindowEnd,
		Samples:     weather.ToEvent(weather.SortByTime(samples)),
	})
}

func (m *Machine) resolve(res attempt) {
	now := m.deps.Now().In(m.set.Zone)

	m.mu.Lock()
	o := m.outcome
	o.UpdatedAt = now
	o.DurationMinutes = res.minutes
	o.Boiler1Minutes, o.Boiler2Minutes = res.b1, res.b2
	o.MeanTempC, o.MeanCloudPct = nil, nil
	if res.means != nil {
		t, c := res.means.TempC, res.means.CloudPct
		o.MeanTempC, o.MeanCloudPct = &t, &c
	}
	switch {
	case res.ok:
		o.Status = StatusSuccess
		o.Error, o.Code = "", ""
		m.updatedToday = true
		m.phase = PhaseCompleted
	case res.skipped:
		o.Status = StatusSkipped
		o.Error, o.Code = res.errMsg, res.code
		m.skippedOn = o.Date
		m.phase = PhaseIdle
	default:
		o.Status = StatusFailed
		o.Error, o.Code = res.errMsg, res.code
		if m.updatedToday {
			m.phase = PhaseCompleted
		} else {
			m.phase = PhaseIdle
		}
	}
	out := *o
	updated := m.updatedToday
	m.mu.Unlock()

	j := m.deps.Journal
	if res.ok {
		j.Event(journalInfo, "Home Assistant update OK", "", map[string]any{"duration": *res.minutes})
	}
	err := j.Summary(string(out.Status), out.Error)
	if err != nil {
		m.log.Error("persist daily summary: %v", err)
	}

	if m.deps.Bus != nil {
		m.deps.Bus.Publish(events.TopicOutcome, toEvent(out, updated))
	}
}

func toEvent(o DailyOutcome, updated bool) events.OutcomeUpdate {
	return events.OutcomeUpdate{
		Date:            o.Date,
		Status:          string(o.Status),
		DurationMinutes: o.DurationMinutes,
		Boiler1Minutes:  o.Boiler1Minutes,
		Boiler2Minutes:  o.Boiler2Minutes,
		MeanTempC:       o.MeanTempC,
		MeanCloudPct:    o.MeanCloudPct,
		Error:           o.Error,
		Code:            o.Code,
		RunID:           o.RunID,
		Attempts:        o.Attempts,
		UpdatedToday:    updated,
		Time:            o.UpdatedAt,
	}
}

// Snapshot is a consistent view of the machine for status pages.
type Snapshot struct {
	Phase        Phase             `json:"phase"`
	UpdatedToday bool              `json:"updated_today"`
	Outcome      *DailyOutcome     `json:"outcome,omitempty"`
	LastTick     time.Time         `json:"last_tick"`
	Trigger      time.Time         `json:"trigger"`
	SunWindow    weather.SunWindow `json:"sun_window"`
	Debug        bool              `json:"debug"`
	Calibration  *Calibration      `json:"calibration,omitempty"`
}

// Calibration is the duration model the machine runs with.
type Calibration struct {
	Params   duration.Params  `json:"params"`
	Table    []duration.Point `json:"lookup_table"`
	MinTempC float64          `json:"table_min_c"`
	MaxTempC float64          `json:"table_max_c"`
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{
		Phase:        m.phase,
		UpdatedToday: m.updatedToday,
		LastTick:     m.lastTick,
		Trigger:      m.trigger,
		SunWindow:    m.window,
		Debug:        m.set.DebugIgnoreSchedule,
	}
	if m.outcome != nil {
		o := *m.outcome
		s.Outcome = &o
	}
	if c := m.deps.Calc; c != nil {
		s.Calibration = &Calibration{
			Params:   c.Params(),
			Table:    c.Table().Points(),
			MinTempC: c.Table().MinTemp(),
			MaxTempC: c.Table().MaxTemp(),
		}
	}
	return s
}

func (m *Machine) UpdatedToday() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updatedToday
}

func (m *Machine) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}
