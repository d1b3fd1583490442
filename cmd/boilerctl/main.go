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

package main

import (
	"boilerctl/internal/boiler"
	"boilerctl/internal/config"
	"boilerctl/internal/duration"
	"boilerctl/internal/hub"
	"boilerctl/internal/hubwatch"
	"boilerctl/internal/journal"
	"boilerctl/internal/metrics"
	"boilerctl/internal/notify"
	"boilerctl/internal/storage"
	"boilerctl/internal/weather"
	"boilerctl/pkg/appctx"
	"boilerctl/pkg/eventbus"
	"boilerctl/pkg/logger"
	"boilerctl/pkg/rootserv"
	"boilerctl/pkg/service"
	"boilerctl/pkg/sysmon"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

func main() {

	rootdir := os.Getenv("PROJECT_ROOT")
	if rootdir == "" {
		rootdir = "."
	}

	confPath := os.Getenv("BOILERCTL_CONFIG")
	if confPath == "" {
		confPath = filepath.Join(rootdir, "var/config/boilerctl.yml")
	}

	flag.StringVar(&confPath, "config", confPath, "path to the YAML config")
	backfill := flag.Int("backfill", 0, "store the last N days of weather samples and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logPath := filepath.Join(rootdir, "var/logs/boilerctl.log")
	if err := logger.Init(logPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	if *debug {
		logger.EnableDebug(true)
	}

	fmt.Println(logPath)
	fmt.Println(confPath)

	appConf := config.LoadFile(confPath)

	// use conf to pass eventbus to whoever needs it
	appConf.EventBus = eventbus.New()
	appConf.RootDir = rootdir
	appConf.Storage.Dir = resolve(rootdir, appConf.Storage.Dir)
	appConf.Journal.Dir = resolve(rootdir, appConf.Journal.Dir)

	log := logger.New("Main")
	lat, lon := appConf.Coordinates()
	log.Info("Location %.4f,%.4f (%s), days back %d", lat, lon, appConf.Zone, appConf.Weather.DaysBack)
	log.Info("Boilers %s / %s, max %d min each, %d min total", appConf.Hub.BoilerEntity1, appConf.Hub.BoilerEntity2, appConf.Boiler.MaxDurationPerBoiler, appConf.Boiler.MaxTotalDuration)
	log.Info("Poll every %s, reset window %s-%s, debug schedule %t", appConf.PollInterval(), appConf.Schedule.ResetWindowStart, appConf.Schedule.ResetWindowEnd, appConf.Schedule.DebugIgnoreSchedule)
	log.Info("Storage %s (read %t, save %t), journal %s", appConf.Storage.Dir, appConf.Storage.Read, appConf.Storage.Save, appConf.Journal.Dir)

	weatherClient := weather.NewClient(appConf)
	store := storage.New(appConf.Storage.Dir, appConf.Zone)

	if *backfill > 0 {
		os.Exit(runBackfill(weatherClient, store, appConf, *backfill))
	}

	table, err := duration.NewLookupTable(appConf.Boiler.LookupTable)
	if err != nil {
		log.Fatal("lookup table: %v", err)
	}
	calc, err := duration.New(table, appConf.DurationParams())
	if err != nil {
		log.Fatal("duration: %v", err)
	}

	dailyJournal := journal.New(appConf.Journal.Dir, appConf.Zone)

	deps := boiler.Deps{
		Weather: weatherClient,
		Sun:     weatherClient,
		Hub:     hub.NewClient(appConf),
		Journal: dailyJournal,
		Calc:    calc,
		Bus:     appConf.EventBus,
	}
	if appConf.Storage.Read || appConf.Storage.Save {
		deps.Store = store
	}
	machine := boiler.New(boiler.SettingsFrom(appConf), deps)

	ctx, ctxCancel := appctx.New()

	// init services
	server := rootserv.New(appConf.HTTP.Addr, "Boiler control")
	sysMonitorService := sysmon.New(appConf.Storage.Dir, appConf.Journal.Dir)
	runnerService := boiler.NewRunner(machine, appConf.PollInterval(), appConf.Zone)
	historyService := weather.NewHistory(appConf.EventBus)
	metricsService := metrics.New(appConf.EventBus)

	services := []service.Runnable{
		runnerService,
		historyService,
		metricsService,
		server,
	}

	// attach web handler enabled services
	server.Attach("/boiler", "Daily boiler update", machine)
	server.Attach("/journal", "Daily journal", dailyJournal)
	server.Attach("/weather", "Weather samples", historyService)
	server.Attach("/logger", "Logger", logger.WebService())
	server.Attach("/monitor", "System Monitor", sysMonitorService)
	server.Handle("/metrics", "Prometheus metrics", metricsService.Handler())

	if appConf.Hub.Websocket {
		watcher := hubwatch.New(appConf)
		server.Attach("/hub", "Live hub entities", watcher)
		services = append(services, watcher)
	}

	// a nil *Notifier must not become a non-nil Runnable
	if notifier := notify.New(appConf); notifier != nil {
		services = append(services, notifier)
	}

	// start runnable services
	exitCh := service.Start(ctx, ctxCancel, services)

	// waits for all services to stop
	os.Exit(<-exitCh)
}

func resolve(rootdir, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(rootdir, dir)
}

// runBackfill saves the samples of the last n days, today excluded, so
// the state machine can run from storage.
func runBackfill(client *weather.Client, store *storage.Store, appConf *config.Config, n int) int {
	log := logger.New("Backfill")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(n)*time.Minute)
	defer cancel()

	failed := 0
	today := time.Now().In(appConf.Zone)
	for i := 1; i <= n; i++ {
		day := today.AddDate(0, 0, -i)
		samples, err := client.FetchDay(ctx, day)
		if err != nil {
			log.Error("%s: %v", day.Format(time.DateOnly), err)
			failed++
			continue
		}
		if err := store.Save(day, samples); err != nil {
			log.Error("%s: %v", day.Format(time.DateOnly), err)
			failed++
			continue
		}
		log.Info("%s: saved %d samples to %s", day.Format(time.DateOnly), len(samples), store.Path(day))
	}
	if failed > 0 {
		return 1
	}
	return 0
}
