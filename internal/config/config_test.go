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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"boilerctl/internal/duration"
	"boilerctl/pkg/apperr"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
location:
  latitude: 37.98
  longitude: 23.72
  timezone: Europe/Athens
hub:
  base_url: http://192.168.1.10:8123/
  token: file-token
  boiler_entity_1: input_number.boiler_1st_on
  boiler_entity_2: input_number.boiler_2nd_on
  activation_script: start_boiler
  guard_entity: switch.boiler
schedule:
  poll_interval_minutes: 5
  reset_window_end: "17:00"
boiler:
  lookup_table:
    0: 180
    5: 150
    10: 120
    15: 80
    20: 40
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	require.Equal(t, "http://192.168.1.10:8123", c.Hub.BaseURL)
	require.Equal(t, "ws://192.168.1.10:8123/api/websocket", c.Hub.WebsocketURL)
	require.Equal(t, 600, c.Hub.ConfirmTimeoutSeconds)
	require.Equal(t, 2, c.Hub.ConfirmIntervalSeconds)
	require.Equal(t, "https://api.open-meteo.com/v1/forecast", c.Weather.URL)
	sunrise, sunset := c.DefaultSunWindow()
	require.Equal(t, 6, sunrise)
	require.Equal(t, 17, sunset)
	require.Equal(t, 2, *c.Weather.WindowStartOffset)
	require.Equal(t, 1, *c.Weather.WindowEndOffset)
	require.Equal(t, 120, c.Boiler.MaxDurationPerBoiler)
	require.Equal(t, 180, c.Boiler.MaxTotalDuration)
	require.Equal(t, 5*time.Minute, c.PollInterval())
	require.Equal(t, "Europe/Athens", c.Zone.String())
	require.Equal(t, ":8080", c.HTTP.Addr)

	// only the end was given, so the start stays at midnight
	require.Equal(t, Clock{Hour: 0}, c.Schedule.ResetWindowStart)
	require.Equal(t, Clock{Hour: 17}, c.Schedule.ResetWindowEnd)

	p := c.DurationParams()
	require.Equal(t, duration.Params{CloudImpact: 0.6, MaxMinutes: 180, SunMinC: 10, SunMaxC: 20}, p)
}

func TestLookupTableKeepsDocumentOrder(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Equal(t, LookupPoints{{TempC: 0, Minutes: 180}, {TempC: 5, Minutes: 150}, {TempC: 10, Minutes: 120}, {TempC: 15, Minutes: 80}, {TempC: 20, Minutes: 40}}, c.Boiler.LookupTable)
}

func TestUnorderedLookupTableRejected(t *testing.T) {
	yml := sampleYAML + "    12: 100\n"
	_, err := Parse([]byte(yml))
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindConfig))
}

func TestExplicitZeroCloudImpact(t *testing.T) {
	yml := sampleYAML + "  cloud_impact_factor: 0\n"
	c, err := Parse([]byte(yml))
	require.NoError(t, err)
	require.Equal(t, 0.0, c.DurationParams().CloudImpact)
}

func TestDefaultResetWindow(t *testing.T) {
	yml := `
location: {latitude: 37.98, longitude: 23.72}
hub: {base_url: "http://hub:8123", token: t, boiler_entity_1: a, boiler_entity_2: b}
boiler:
  lookup_table: {10: 160, 20: 40}
`
	c, err := Parse([]byte(yml))
	require.NoError(t, err)
	require.Equal(t, "07:00", c.Schedule.ResetWindowStart.String())
	require.Equal(t, "14:00", c.Schedule.ResetWindowEnd.String())
	require.Equal(t, time.Local, c.Zone)
}

func TestMissingRequiredSettings(t *testing.T) {
	cases := map[string]string{
		"no hub token": `
location: {latitude: 37.98, longitude: 23.72}
hub: {base_url: "http://hub:8123", boiler_entity_1: a, boiler_entity_2: b}
boiler: {lookup_table: {10: 160, 20: 40}}`,
		"script without guard": `
location: {latitude: 37.98, longitude: 23.72}
hub: {base_url: "http://hub:8123", token: t, boiler_entity_1: a, boiler_entity_2: b, activation_script: s}
boiler: {lookup_table: {10: 160, 20: 40}}`,
		"one point table": `
location: {latitude: 37.98, longitude: 23.72}
hub: {base_url: "http://hub:8123", token: t, boiler_entity_1: a, boiler_entity_2: b}
boiler: {lookup_table: {10: 160}}`,
		"bad latitude": `
location: {latitude: 137.98, longitude: 23.72}
hub: {base_url: "http://hub:8123", token: t, boiler_entity_1: a, boiler_entity_2: b}
boiler: {lookup_table: {10: 160, 20: 40}}`,
		"inverted reset window": `
location: {latitude: 37.98, longitude: 23.72}
hub: {base_url: "http://hub:8123", token: t, boiler_entity_1: a, boiler_entity_2: b}
schedule: {reset_window_start: "14:00", reset_window_end: "07:00"}
boiler: {lookup_table: {10: 160, 20: 40}}`,
		"bad clock": `
location: {latitude: 37.98, longitude: 23.72}
hub: {base_url: "http://hub:8123", token: t, boiler_entity_1: a, boiler_entity_2: b}
schedule: {reset_window_start: "7am"}
boiler: {lookup_table: {10: 160, 20: 40}}`,
		"empty sun range": `
location: {latitude: 37.98, longitude: 23.72}
hub: {base_url: "http://hub:8123", token: t, boiler_entity_1: a, boiler_entity_2: b}
boiler: {sun_relevant_min_c: 15, sun_relevant_max_c: 15, lookup_table: {10: 160, 20: 40}}`,
		"unknown timezone": `
location: {latitude: 37.98, longitude: 23.72, timezone: Mars/Olympus}
hub: {base_url: "http://hub:8123", token: t, boiler_entity_1: a, boiler_entity_2: b}
boiler: {lookup_table: {10: 160, 20: 40}}`,
	}
	for name, yml := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(yml))
			require.Error(t, err)
			require.True(t, apperr.Is(err, apperr.KindConfig), "%v", err)
		})
	}
}

func TestTimezoneLoaded(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	athens, err := time.LoadLocation("Europe/Athens")
	require.NoError(t, err)
	require.Equal(t, athens.String(), c.Zone.String())

	at := time.Date(2025, 7, 1, 12, 0, 0, 0, c.Zone)
	_, offset := at.Zone()
	require.Equal(t, 3*3600, offset)
}

func TestInvalidTimezoneIsConfigError(t *testing.T) {
	yml := strings.Replace(sampleYAML, "Europe/Athens", "Europe/Nowhere", 1)
	_, err := Parse([]byte(yml))
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindConfig), "%v", err)
}

func TestZeroValuesAreSettings(t *testing.T) {
	yml := `
location: {latitude: 0, longitude: 0, timezone: UTC}
weather: {default_sunrise: 0, default_sunset: 23}
hub: {base_url: "http://hub:8123", token: t, boiler_entity_1: a, boiler_entity_2: b}
boiler: {lookup_table: {10: 160, 20: 40}}
`
	c, err := Parse([]byte(yml))
	require.NoError(t, err)

	lat, lon := c.Coordinates()
	require.Equal(t, 0.0, lat)
	require.Equal(t, 0.0, lon)

	sunrise, sunset := c.DefaultSunWindow()
	require.Equal(t, 0, sunrise)
	require.Equal(t, 23, sunset)
}

func TestMissingCoordinatesRejected(t *testing.T) {
	yml := `
location: {longitude: 23.72}
hub: {base_url: "http://hub:8123", token: t, boiler_entity_1: a, boiler_entity_2: b}
boiler: {lookup_table: {10: 160, 20: 40}}
`
	_, err := Parse([]byte(yml))
	require.True(t, apperr.Is(err, apperr.KindConfig), "%v", err)
}

func TestEnvOverridesToken(t *testing.T) {
	t.Setenv(EnvHubToken, "env-token")
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Equal(t, "env-token", c.Hub.Token)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boilerctl.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "input_number.boiler_1st_on", c.Hub.BoilerEntity1)

	_, err = Load(filepath.Join(dir, "missing.yml"))
	require.True(t, apperr.Is(err, apperr.KindConfig))
}
