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
	"boilerctl/pkg/logger"
	"context"
	"time"

	"github.com/go-co-op/gocron"
)

type ticker interface {
	Tick(ctx context.Context, now time.Time)
}

// Runner drives a Machine: one Tick per poll interval, never two at once.
type Runner struct {
	log      *logger.Logger
	machine  ticker
	interval time.Duration
	zone     *time.Location
}

func NewRunner(machine ticker, interval time.Duration, zone *time.Location) *Runner {
	if zone == nil {
		zone = time.Local
	}
	return &Runner{
		log:      logger.New("Scheduler"),
		machine:  machine,
		interval: interval,
		zone:     zone,
	}
}

func (r *Runner) Run(ctx context.Context) {
	r.log.Info("ticking every %s", r.interval)
	defer r.log.Info("Stopped")

	s := gocron.NewScheduler(r.zone)
	s.SingletonModeAll()

	_, err := s.Every(r.interval).Do(func() {
		if ctx.Err() != nil {
			return
		}
		r.machine.Tick(ctx, time.Now().In(r.zone))
	})
	if err != nil {
		r.log.Error("schedule tick: %v", err)
		return
	}

	s.StartAsync()
	<-ctx.Done()
	s.Stop()
}
