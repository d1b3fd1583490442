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

package metrics

import (
	"boilerctl/internal/events"
	"boilerctl/pkg/eventbus"
	"boilerctl/pkg/logger"
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "boilerctl"

// Exporter turns bus events into prometheus series.
type Exporter struct {
	log      *logger.Logger
	eb       *eventbus.Bus
	registry *prometheus.Registry

	duration     prometheus.Gauge
	boiler       *prometheus.GaugeVec
	meanTemp     prometheus.Gauge
	meanCloud    prometheus.Gauge
	updatedToday prometheus.Gauge
	attempts     prometheus.Gauge
	lastOutcome  prometheus.Gauge
	outcomes     *prometheus.CounterVec
	entityOn     *prometheus.GaugeVec
	entityEvents *prometheus.CounterVec
}

func New(eb *eventbus.Bus) *Exporter {
	m := &Exporter{
		log:      logger.New("Metrics"),
		eb:       eb,
		registry: prometheus.NewRegistry(),

		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duration_minutes",
			Help:      "Total heating duration computed for the current day",
		}),
		boiler: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "boiler_minutes",
			Help:      "Minutes written to each boiler entity",
		}, []string{"boiler"}),
		meanTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mean_temperature_celsius",
			Help:      "Mean temperature over the sun window",
		}),
		meanCloud: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mean_cloud_percent",
			Help:      "Mean cloud cover over the sun window",
		}),
		updatedToday: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "updated_today",
			Help:      "1 once the day's update succeeded",
		}),
		attempts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "attempts",
			Help:      "Update attempts made for the current day",
		}),
		lastOutcome: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_outcome_timestamp_seconds",
			Help:      "Unix time of the last resolved update cycle",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Resolved update cycles by status and code",
		}, []string{"status", "code"}),
		entityOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entity_on",
			Help:      "1 when a watched hub entity reports on",
		}, []string{"entity"}),
		entityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_changes_total",
			Help:      "State changes seen on watched hub entities",
		}, []string{"entity"}),
	}

	m.registry.MustRegister(
		m.duration, m.boiler, m.meanTemp, m.meanCloud, m.updatedToday,
		m.attempts, m.lastOutcome, m.outcomes, m.entityOn, m.entityEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.registerBusStats()
	return m
}

func (m *Exporter) registerBusStats() {
	stat := func(name, help string, get func(eventbus.Stats) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventbus",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(get(m.eb.Stats())) })
	}
	m.registry.MustRegister(
		stat("published_total", "Events published", func(s eventbus.Stats) int64 { return s.Published }),
		stat("delivered_total", "Events handed to subscribers", func(s eventbus.Stats) int64 { return s.Delivered }),
		stat("replaced_total", "Unread events replaced by a newer one", func(s eventbus.Stats) int64 { return s.Replaced }),
		stat("dropped_total", "Events dropped", func(s eventbus.Stats) int64 { return s.Dropped }),
	)
}

// Handler serves the registry in the text exposition format.
func (m *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}

func (m *Exporter) Run(ctx context.Context) {
	outcomes, unsubOutcome := m.eb.Subscribe(ctx, events.TopicOutcome, true)
	defer unsubOutcome()
	entities, unsubEntity := m.eb.Subscribe(ctx, events.TopicHubEntity, false)
	defer unsubEntity()

	m.log.Info("Running")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-outcomes:
			if !ok {
				return
			}
			if upd, ok := ev.(events.OutcomeUpdate); ok {
				m.observeOutcome(upd)
			}
		case ev, ok := <-entities:
			if !ok {
				return
			}
			if upd, ok := ev.(events.EntityUpdate); ok {
				m.observeEntity(upd)
			}
		}
	}
}

func (m *Exporter) observeOutcome(upd events.OutcomeUpdate) {
	if upd.DurationMinutes != nil {
		m.duration.Set(float64(*upd.DurationMinutes))
	}
	m.boiler.WithLabelValues("1").Set(float64(upd.Boiler1Minutes))
	m.boiler.WithLabelValues("2").Set(float64(upd.Boiler2Minutes))
	if upd.MeanTempC != nil {
		m.meanTemp.Set(*upd.MeanTempC)
	}
	if upd.MeanCloudPct != nil {
		m.meanCloud.Set(*upd.MeanCloudPct)
	}
	m.updatedToday.Set(boolGauge(upd.UpdatedToday))
	m.attempts.Set(float64(upd.Attempts))
	m.lastOutcome.Set(float64(upd.Time.Unix()))
	m.outcomes.WithLabelValues(upd.Status, upd.Code).Inc()
}

func (m *Exporter) observeEntity(upd events.EntityUpdate) {
	m.entityOn.WithLabelValues(upd.EntityID).Set(boolGauge(upd.State == "on"))
	m.entityEvents.WithLabelValues(upd.EntityID).Inc()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
