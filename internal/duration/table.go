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

package duration

import (
	"boilerctl/pkg/apperr"
	"fmt"
)

// Point is one control point of the lookup table: at TempC outdoor
// temperature the boiler should run Minutes before cloud correction.
type Point struct {
	TempC   float64
	Minutes float64
}

// LookupTable maps temperature to base duration. Keys are strictly
// increasing; lookups outside the range clamp to the end points.
type LookupTable struct {
	temps   []float64
	minutes []float64
}

func NewLookupTable(points []Point) (*LookupTable, error) {
	if len(points) < 2 {
		return nil, apperr.Config(fmt.Sprintf("lookup table needs at least 2 points, got %d", len(points)), nil)
	}

	t := &LookupTable{
		temps:   make([]float64, len(points)),
		minutes: make([]float64, len(points)),
	}
	for i, p := range points {
		if i > 0 && p.TempC <= points[i-1].TempC {
			return nil, apperr.Config(fmt.Sprintf("lookup table keys must be strictly increasing: %v after %v", p.TempC, points[i-1].TempC), nil)
		}
		if p.Minutes < 0 {
			return nil, apperr.Config(fmt.Sprintf("lookup table value for %v°C is negative: %v", p.TempC, p.Minutes), nil)
		}
		t.temps[i] = p.TempC
		t.minutes[i] = p.Minutes
	}
	return t, nil
}

func (t *LookupTable) MinTemp() float64 { return t.temps[0] }
func (t *LookupTable) MaxTemp() float64 { return t.temps[len(t.temps)-1] }

func (t *LookupTable) Points() []Point {
	out := make([]Point, len(t.temps))
	for i := range t.temps {
		out[i] = Point{TempC: t.temps[i], Minutes: t.minutes[i]}
	}
	return out
}

// Base returns the interpolated duration for tempC.
func (t *LookupTable) Base(tempC float64) float64 {
	last := len(t.temps) - 1
	if tempC <= t.temps[0] {
		return t.minutes[0]
	}
	if tempC >= t.temps[last] {
		return t.minutes[last]
	}

	for i := 0; i < last; i++ {
		t0, t1 := t.temps[i], t.temps[i+1]
		if t0 <= tempC && tempC <= t1 {
			v0, v1 := t.minutes[i], t.minutes[i+1]
			ratio := (tempC - t0) / (t1 - t0)
			return v0 + ratio*(v1-v0)
		}
	}
	// NaN ends up here
	return t.minutes[0]
}
