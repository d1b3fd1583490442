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
	"math"
)

// Params tunes the cloud correction and output range.
type Params struct {
	// CloudImpact (k) is the largest fractional increase full cloud
	// cover can add, e.g. 0.6 → up to +60%.
	CloudImpact float64
	MaxMinutes  int

	// Temperatures between which the sun matters. Below SunMinC the
	// cloud correction is off, above SunMaxC it applies fully.
	SunMinC float64
	SunMaxC float64
}

type Calculator struct {
	table  *LookupTable
	params Params
}

// Breakdown keeps the intermediate values so callers can log them.
type Breakdown struct {
	TempC     float64
	CloudPct  float64
	Base      float64
	SunFactor float64
	Alpha     float64
	Minutes   int
}

func New(table *LookupTable, p Params) (*Calculator, error) {
	if table == nil {
		return nil, apperr.Config("lookup table is missing", nil)
	}
	if p.SunMaxC <= p.SunMinC {
		return nil, apperr.Config(fmt.Sprintf("sun relevant range is empty: min %v, max %v", p.SunMinC, p.SunMaxC), nil)
	}
	if p.MaxMinutes < 0 {
		return nil, apperr.Config(fmt.Sprintf("max duration is negative: %d", p.MaxMinutes), nil)
	}
	return &Calculator{table: table, params: p}, nil
}

func (c *Calculator) Params() Params { return c.params }

func (c *Calculator) Table() *LookupTable { return c.table }

// Minutes returns the recommended heating duration.
func (c *Calculator) Minutes(tempC, cloudPct float64) int {
	return c.Explain(tempC, cloudPct).Minutes
}

func (c *Calculator) Explain(tempC, cloudPct float64) Breakdown {
	cloudPct = clamp(cloudPct, 0, 100)
	base := c.table.Base(tempC)

	st := clamp((tempC-c.params.SunMinC)/(c.params.SunMaxC-c.params.SunMinC), 0, 1)
	alpha := c.params.CloudImpact * (cloudPct / 100.0) * st

	raw := math.RoundToEven(base * (1 + alpha))
	minutes := int(clamp(raw, 0, float64(c.params.MaxMinutes)))

	return Breakdown{
		TempC:     tempC,
		CloudPct:  cloudPct,
		Base:      base,
		SunFactor: st,
		Alpha:     alpha,
		Minutes:   minutes,
	}
}

// Split spreads total over two boilers, filling the first up to
// perBoiler and putting the rest on the second.
func Split(total, perBoiler int) (first, second int) {
	total = max(total, 0)
	first = min(total, perBoiler)
	second = max(0, total-perBoiler)
	return first, second
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
