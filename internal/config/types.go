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
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Clock is a wall-clock time of day, written "HH:MM" in the config file.
type Clock struct {
	Hour   int
	Minute int
}

func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time of day %q, want HH:MM", s)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c *Clock) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseClock(value.Value)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Clock) MarshalYAML() (any, error) {
	return c.String(), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) IsZero() bool {
	return c.Hour == 0 && c.Minute == 0
}

// Offset is the duration since midnight.
func (c Clock) Offset() time.Duration {
	return time.Duration(c.Hour)*time.Hour + time.Duration(c.Minute)*time.Minute
}

func (c Clock) Before(other Clock) bool {
	return c.Offset() < other.Offset()
}

// LookupPoints is the lookup table as written in the config file: a YAML
// mapping of temperature to minutes. Document order is kept, so an
// unordered table is reported instead of silently sorted.
type LookupPoints []duration.Point

func (lp *LookupPoints) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: lookup_table must be a mapping of temperature to minutes", value.Line)
	}

	points := make(LookupPoints, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		temp, err := strconv.ParseFloat(k.Value, 64)
		if err != nil {
			return fmt.Errorf("line %d: lookup_table key %q is not a temperature", k.Line, k.Value)
		}
		minutes, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return fmt.Errorf("line %d: lookup_table value %q is not a number of minutes", v.Line, v.Value)
		}
		points = append(points, duration.Point{TempC: temp, Minutes: minutes})
	}
	*lp = points
	return nil
}
