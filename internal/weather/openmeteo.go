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
	"boilerctl/internal/config"
	"boilerctl/pkg/apperr"
	"boilerctl/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
)

const openMeteoTime = "2006-01-02T15:04"

// Client fetches hourly samples and sun times from an Open-Meteo style
// forecast endpoint.
type Client struct {
	log      *logger.Logger
	http     *http.Client
	cb       *gobreaker.CircuitBreaker
	url      string
	sunURL   string
	lat      float64
	lon      float64
	zone     *time.Location
	tzParam  string
	defaults SunWindow

	// replaced in tests
	now func() time.Time
}

func NewClient(appConf *config.Config) *Client {
	zone := appConf.Zone
	if zone == nil {
		zone = time.Local
	}
	tz := appConf.Location.Timezone
	if tz == "" {
		tz = "auto"
	}

	lat, lon := appConf.Coordinates()
	sunrise, sunset := appConf.DefaultSunWindow()

	return &Client{
		log:  logger.New("Weather"),
		http: &http.Client{Timeout: time.Duration(appConf.Weather.TimeoutSeconds) * time.Second},
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openmeteo",
			MaxRequests: 1,
			Interval:    10 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
		url:     appConf.Weather.URL,
		sunURL:  appConf.Weather.SunURL,
		lat:     lat,
		lon:     lon,
		zone:    zone,
		tzParam: tz,
		defaults: SunWindow{
			Sunrise: sunrise,
			Sunset:  sunset,
		},
		now: time.Now,
	}
}

type hourlyPayload struct {
	Hourly struct {
		Time        []string   `json:"time"`
		Temperature []*float64 `json:"temperature_2m"`
		CloudCover  []*float64 `json:"cloudcover"`
	} `json:"hourly"`
}

type dailyPayload struct {
	Daily struct {
		Time    []string `json:"time"`
		Sunrise []string `json:"sunrise"`
		Sunset  []string `json:"sunset"`
	} `json:"daily"`
}

// pastDays is how many days before today day lies, never negative.
func (c *Client) pastDays(day time.Time) int {
	now := c.now().In(c.zone)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.zone)
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, c.zone)
	n := int(math.Round(today.Sub(d).Hours() / 24))
	return max(n, 0)
}

func (c *Client) query(base string, day time.Time, extra url.Values) string {
	v := url.Values{}
	v.Set("latitude", strconv.FormatFloat(c.lat, 'f', -1, 64))
	v.Set("longitude", strconv.FormatFloat(c.lon, 'f', -1, 64))
	v.Set("timezone", c.tzParam)
	v.Set("past_days", strconv.Itoa(c.pastDays(day)))
	for k, vals := range extra {
		v[k] = vals
	}
	return base + "?" + v.Encode()
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	_, err := c.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil, json.NewDecoder(resp.Body).Decode(out)
	})
	return err
}

// FetchDay returns the hourly samples of the calendar day containing day.
// Hours after now are skipped, so for today only elapsed hours are
// returned. An empty result is an error.
func (c *Client) FetchDay(ctx context.Context, day time.Time) ([]Sample, error) {
	day = day.In(c.zone)
	target := day.Format(time.DateOnly)

	var p hourlyPayload
	u := c.query(c.url, day, url.Values{"hourly": {"temperature_2m,cloudcover"}})
	if err := c.getJSON(ctx, u, &p); err != nil {
		return nil, apperr.DataFetch("WEATHER_FETCH_FAIL", "fetch weather", err)
	}

	h := p.Hourly
	n := min(len(h.Time), len(h.Temperature), len(h.CloudCover))
	now := c.now()

	var out []Sample
	for i := 0; i < n; i++ {
		ts, err := time.ParseInLocation(openMeteoTime, h.Time[i], c.zone)
		if err != nil {
			c.log.Warn("skipping sample with bad time %q: %v", h.Time[i], err)
			continue
		}
		if ts.Format(time.DateOnly) != target || ts.After(now) {
			continue
		}
		if h.Temperature[i] == nil || h.CloudCover[i] == nil {
			continue
		}
		out = append(out, Sample{Time: ts, TempC: *h.Temperature[i], CloudPct: *h.CloudCover[i]})
	}

	if len(out) == 0 {
		return nil, apperr.DataFetch("WEATHER_FETCH_FAIL", "no weather samples for "+target, nil)
	}
	c.log.Info("fetched %d samples for %s", len(out), target)
	return out, nil
}

// SunWindow returns sunrise and sunset of day rounded to the nearest
// hour. Any failure falls back to the configured defaults.
func (c *Client) SunWindow(ctx context.Context, day time.Time) SunWindow {
	win, err := c.fetchSun(ctx, day.In(c.zone))
	if err != nil {
		c.log.Warn("sun times: %v, using defaults %d/%d", err, c.defaults.Sunrise, c.defaults.Sunset)
		return c.defaults
	}
	return win
}

func (c *Client) fetchSun(ctx context.Context, day time.Time) (SunWindow, error) {
	target := day.Format(time.DateOnly)

	var p dailyPayload
	u := c.query(c.sunURL, day, url.Values{"daily": {"sunrise,sunset"}})
	if err := c.getJSON(ctx, u, &p); err != nil {
		return SunWindow{}, err
	}

	d := p.Daily
	n := min(len(d.Time), len(d.Sunrise), len(d.Sunset))
	for i := 0; i < n; i++ {
		if d.Time[i] != target {
			continue
		}
		rise, err := time.ParseInLocation(openMeteoTime, d.Sunrise[i], c.zone)
		if err != nil {
			return SunWindow{}, fmt.Errorf("sunrise %q: %w", d.Sunrise[i], err)
		}
		set, err := time.ParseInLocation(openMeteoTime, d.Sunset[i], c.zone)
		if err != nil {
			return SunWindow{}, fmt.Errorf("sunset %q: %w", d.Sunset[i], err)
		}
		return SunWindow{Sunrise: roundHour(rise), Sunset: roundHour(set)}, nil
	}
	return SunWindow{}, errors.New("no sun times for " + target)
}

// roundHour rounds a clock time to the nearest hour, wrapping at 24.
func roundHour(t time.Time) int {
	h := math.RoundToEven(float64(t.Hour()) + float64(t.Minute())/60)
	return int(h) % 24
}
