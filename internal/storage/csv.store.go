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

package storage

import (
	"boilerctl/internal/weather"
	"boilerctl/pkg/apperr"
	"boilerctl/pkg/logger"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	timeLayout = "2006-01-02T15:04:05"
	fileExt    = ".csv"
)

var header = []string{"time", "temp", "clouds"}

// Store keeps one CSV file of hourly samples per calendar day.
type Store struct {
	log  *logger.Logger
	dir  string
	zone *time.Location
}

func New(dir string, zone *time.Location) *Store {
	if zone == nil {
		zone = time.Local
	}
	return &Store{
		log:  logger.New("Storage"),
		dir:  dir,
		zone: zone,
	}
}

// Path returns the file used for day.
func (s *Store) Path(day time.Time) string {
	return filepath.Join(s.dir, day.In(s.zone).Format(time.DateOnly)+fileExt)
}

// Save replaces the file for day. An empty sample set writes nothing.
func (s *Store) Save(day time.Time, samples []weather.Sample) error {
	if len(samples) == 0 {
		s.log.Warn("no samples to save for %s", day.In(s.zone).Format(time.DateOnly))
		return nil
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	path := s.Path(day)
	tmpPath := path + ".tmp"
	if err := s.writeFile(tmpPath, samples); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: %w", err)
	}
	s.log.Info("saved %d samples to %s", len(samples), path)
	return nil
}

func (s *Store) writeFile(path string, samples []weather.Sample) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, smp := range samples {
		err := w.Write([]string{
			smp.Time.In(s.zone).Format(timeLayout),
			strconv.FormatFloat(smp.TempC, 'f', -1, 64),
			strconv.FormatFloat(smp.CloudPct, 'f', -1, 64),
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return err
	}
	return file.Close()
}

// Load reads the samples stored for day. A missing or unreadable file is
// a data fetch error.
func (s *Store) Load(day time.Time) ([]weather.Sample, error) {
	path := s.Path(day)
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, apperr.DataFetch("WEATHER_FETCH_FAIL", "open "+path, err)
	}
	defer file.Close()

	samples, err := s.read(file)
	if err != nil {
		return nil, apperr.DataFetch("WEATHER_FETCH_FAIL", "read "+path, err)
	}
	s.log.Info("loaded %d samples from %s", len(samples), path)
	return samples, nil
}

func (s *Store) read(r io.Reader) ([]weather.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	first, err := cr.Read()
	if err != nil {
		return nil, err
	}
	col := make(map[string]int, len(first))
	for i, name := range first {
		col[name] = i
	}
	for _, name := range header {
		if _, ok := col[name]; !ok {
			return nil, errors.New("missing column " + name)
		}
	}

	var out []weather.Sample
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		ts, err := s.parseTime(rec[col["time"]])
		if err != nil {
			return nil, err
		}
		temp, err := strconv.ParseFloat(rec[col["temp"]], 64)
		if err != nil {
			return nil, fmt.Errorf("temp: %w", err)
		}
		clouds, err := strconv.ParseFloat(rec[col["clouds"]], 64)
		if err != nil {
			return nil, fmt.Errorf("clouds: %w", err)
		}
		out = append(out, weather.Sample{Time: ts, TempC: temp, CloudPct: clouds})
	}
	return out, nil
}

func (s *Store) parseTime(v string) (time.Time, error) {
	if ts, err := time.ParseInLocation(timeLayout, v, s.zone); err == nil {
		return ts, nil
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("time %q: %w", v, err)
	}
	return ts.In(s.zone), nil
}
