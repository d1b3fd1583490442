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
	"boilerctl/internal/duration"
	"boilerctl/pkg/apperr"
	"boilerctl/pkg/eventbus"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type LocationConfig struct {
	// pointers so that 0.0 (equator, prime meridian) is a valid setting
	Latitude  *float64 `yaml:"latitude" validate:"required,latitude"`
	Longitude *float64 `yaml:"longitude" validate:"required,longitude"`

	// IANA zone of the hub, e.g. "Europe/Athens". Empty means the
	// process's local zone.
	Timezone string `yaml:"timezone"`
}

type WeatherConfig struct {
	URL            string `yaml:"url" validate:"required,url"`
	SunURL         string `yaml:"sun_url" validate:"required,url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gt=0"`

	// 0 = today, 1 = yesterday, ...
	DaysBack int `yaml:"days_back" validate:"gte=0,lte=92"`

	// used when the sun times cannot be fetched; 0 is a valid hour
	DefaultSunrise *int `yaml:"default_sunrise" validate:"omitempty,gte=0,lte=23"`
	DefaultSunset  *int `yaml:"default_sunset" validate:"omitempty,gte=0,lte=23"`

	// Analysis window is [sunrise+start, sunset-end].
	WindowStartOffset *int `yaml:"window_start_offset"`
	WindowEndOffset   *int `yaml:"window_end_offset"`
}

type HubConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	Token   string `yaml:"token" validate:"required"`

	BoilerEntity1    string `yaml:"boiler_entity_1" validate:"required"`
	BoilerEntity2    string `yaml:"boiler_entity_2" validate:"required"`
	ActivationScript string `yaml:"activation_script"`
	GuardEntity      string `yaml:"guard_entity" validate:"required_with=ActivationScript"`

	TimeoutSeconds         int `yaml:"timeout_seconds" validate:"gt=0"`
	ConfirmTimeoutSeconds  int `yaml:"confirm_timeout_seconds" validate:"gt=0"`
	ConfirmIntervalSeconds int `yaml:"confirm_interval_seconds" validate:"gt=0"`

	// Live entity view over the websocket API.
	Websocket    bool   `yaml:"websocket"`
	WebsocketURL string `yaml:"websocket_url"`
}

type ScheduleConfig struct {
	PollIntervalMinutes float64 `yaml:"poll_interval_minutes" validate:"gt=0"`
	DebugIgnoreSchedule bool    `yaml:"debug_ignore_schedule"`

	// The "updated today" flag is cleared inside [start, end).
	ResetWindowStart Clock `yaml:"reset_window_start"`
	ResetWindowEnd   Clock `yaml:"reset_window_end"`
}

type StorageConfig struct {
	Dir  string `yaml:"dir" validate:"required"`
	Save bool   `yaml:"save"`
	Read bool   `yaml:"read"`
}

type BoilerConfig struct {
	MaxDurationPerBoiler int          `yaml:"max_duration_per_boiler" validate:"gt=0"`
	MaxTotalDuration     int          `yaml:"max_total_duration" validate:"gt=0"`
	CloudImpactFactor    *float64     `yaml:"cloud_impact_factor"`
	SunRelevantMinC      *float64     `yaml:"sun_relevant_min_c"`
	SunRelevantMaxC      *float64     `yaml:"sun_relevant_max_c"`
	LookupTable          LookupPoints `yaml:"lookup_table" validate:"min=2"`
}

type JournalConfig struct {
	Dir string `yaml:"dir" validate:"required"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	Location LocationConfig `yaml:"location"`
	Weather  WeatherConfig  `yaml:"weather"`
	Hub      HubConfig      `yaml:"hub"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Storage  StorageConfig  `yaml:"storage"`
	Boiler   BoilerConfig   `yaml:"boiler"`
	Journal  JournalConfig  `yaml:"journal"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	HTTP     HTTPConfig     `yaml:"http"`

	// not loaded from file, but added here to
	// pass to all services alongside config
	EventBus *eventbus.Bus  `yaml:"-" validate:"-"`
	Zone     *time.Location `yaml:"-" validate:"-"`
	RootDir  string         `yaml:"-" validate:"-"`
}

// Env overrides, typically kept in a .env file next to the binary.
const (
	EnvHubToken   = "HUB_TOKEN"
	EnvHubBaseURL = "HUB_BASE_URL"
	EnvMQTTPass   = "MQTT_PASSWORD"
)

// LoadFile is Load for startup code: any error is fatal.
func LoadFile(path string) *Config {
	c, err := Load(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return c
}

// Load reads the YAML config at path, applies .env and environment
// overrides and defaults, then validates. All failures are ConfigErrors.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: .env: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Config("read config", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, apperr.Config("decode config", err)
	}

	c.applyEnv()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	c.Zone = time.Local
	if c.Location.Timezone != "" {
		zone, err := time.LoadLocation(c.Location.Timezone)
		if err != nil {
			return nil, apperr.Config("location.timezone", err)
		}
		c.Zone = zone
	}

	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvHubToken); v != "" {
		c.Hub.Token = v
	}
	if v := os.Getenv(EnvHubBaseURL); v != "" {
		c.Hub.BaseURL = v
	}
	if v := os.Getenv(EnvMQTTPass); v != "" {
		c.MQTT.Password = v
	}
}

func (c *Config) applyDefaults() {
	if c.Weather.URL == "" {
		c.Weather.URL = "https://api.open-meteo.com/v1/forecast"
	}
	if c.Weather.SunURL == "" {
		c.Weather.SunURL = c.Weather.URL
	}
	if c.Weather.TimeoutSeconds == 0 {
		c.Weather.TimeoutSeconds = 10
	}
	if c.Weather.DefaultSunrise == nil {
		c.Weather.DefaultSunrise = intPtr(6)
	}
	if c.Weather.DefaultSunset == nil {
		c.Weather.DefaultSunset = intPtr(17)
	}
	if c.Weather.WindowStartOffset == nil {
		c.Weather.WindowStartOffset = intPtr(2)
	}
	if c.Weather.WindowEndOffset == nil {
		c.Weather.WindowEndOffset = intPtr(1)
	}

	c.Hub.BaseURL = strings.TrimRight(c.Hub.BaseURL, "/")
	if c.Hub.TimeoutSeconds == 0 {
		c.Hub.TimeoutSeconds = 10
	}
	if c.Hub.ConfirmTimeoutSeconds == 0 {
		c.Hub.ConfirmTimeoutSeconds = 600
	}
	if c.Hub.ConfirmIntervalSeconds == 0 {
		c.Hub.ConfirmIntervalSeconds = 2
	}
	if c.Hub.WebsocketURL == "" && c.Hub.BaseURL != "" {
		ws := strings.Replace(c.Hub.BaseURL, "http", "ws", 1)
		c.Hub.WebsocketURL = ws + "/api/websocket"
	}

	if c.Schedule.PollIntervalMinutes == 0 {
		c.Schedule.PollIntervalMinutes = 5
	}
	if c.Schedule.ResetWindowStart.IsZero() && c.Schedule.ResetWindowEnd.IsZero() {
		c.Schedule.ResetWindowStart = Clock{Hour: 7}
		c.Schedule.ResetWindowEnd = Clock{Hour: 14}
	}

	if c.Storage.Dir == "" {
		c.Storage.Dir = "var/weather"
	}

	if c.Boiler.MaxDurationPerBoiler == 0 {
		c.Boiler.MaxDurationPerBoiler = 120
	}
	if c.Boiler.MaxTotalDuration == 0 {
		c.Boiler.MaxTotalDuration = 180
	}
	if c.Boiler.CloudImpactFactor == nil {
		c.Boiler.CloudImpactFactor = floatPtr(0.6)
	}
	if c.Boiler.SunRelevantMinC == nil {
		c.Boiler.SunRelevantMinC = floatPtr(10)
	}
	if c.Boiler.SunRelevantMaxC == nil {
		c.Boiler.SunRelevantMaxC = floatPtr(20)
	}

	if c.Journal.Dir == "" {
		c.Journal.Dir = "var/logs/daily"
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "boilerctl"
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "home/boiler/daily"
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks required settings and ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return apperr.Config("invalid settings: "+strings.Join(fields, ", "), nil)
		}
		return apperr.Config("validate", err)
	}

	if !c.Schedule.ResetWindowStart.Before(c.Schedule.ResetWindowEnd) {
		return apperr.Config(fmt.Sprintf("schedule: reset window %s-%s is empty",
			c.Schedule.ResetWindowStart, c.Schedule.ResetWindowEnd), nil)
	}

	// the table itself checks ordering and values
	table, err := duration.NewLookupTable(c.Boiler.LookupTable)
	if err != nil {
		return err
	}
	_, err = duration.New(table, c.DurationParams())
	return err
}

// DurationParams maps the boiler section to calculator parameters.
func (c *Config) DurationParams() duration.Params {
	return duration.Params{
		CloudImpact: deref(c.Boiler.CloudImpactFactor),
		MaxMinutes:  c.Boiler.MaxTotalDuration,
		SunMinC:     deref(c.Boiler.SunRelevantMinC),
		SunMaxC:     deref(c.Boiler.SunRelevantMaxC),
	}
}

// Coordinates returns the configured latitude and longitude.
func (c *Config) Coordinates() (lat, lon float64) {
	return deref(c.Location.Latitude), deref(c.Location.Longitude)
}

// DefaultSunWindow is the sunrise and sunset hour used when the sun
// times cannot be fetched.
func (c *Config) DefaultSunWindow() (sunrise, sunset int) {
	return deref(c.Weather.DefaultSunrise), deref(c.Weather.DefaultSunset)
}

// PollInterval is the scheduler cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Schedule.PollIntervalMinutes * float64(time.Minute))
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
