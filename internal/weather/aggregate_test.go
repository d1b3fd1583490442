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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func at(hour int, temp, cloud float64) Sample {
	return Sample{
		Time:     time.Date(2025, 3, 14, hour, 0, 0, 0, time.UTC),
		TempC:    temp,
		CloudPct: cloud,
	}
}

func TestAggregateEmpty(t *testing.T) {
	_, ok := Aggregate(nil, SunWindow{Sunrise: 8, Sunset: 13}, DefaultOffsets)
	require.False(t, ok)
}

func TestAggregateNothingInWindow(t *testing.T) {
	samples := []Sample{at(3, 1, 10), at(9, 2, 20), at(13, 3, 30), at(22, 4, 40)}
	m, ok := Aggregate(samples, SunWindow{Sunrise: 8, Sunset: 13}, DefaultOffsets)
	require.False(t, ok)
	require.Equal(t, 10, m.WindowStart)
	require.Equal(t, 12, m.WindowEnd)
}

func TestAggregatePair(t *testing.T) {
	samples := []Sample{at(10, 5, 50), at(11, 7, 60)}
	m, ok := Aggregate(samples, SunWindow{Sunrise: 8, Sunset: 13}, DefaultOffsets)
	require.True(t, ok)
	require.InDelta(t, 6.0, m.TempC, 1e-9)
	require.InDelta(t, 55.0, m.CloudPct, 1e-9)
	require.Equal(t, 2, m.Samples)
}

func TestAggregateWindowIsInclusive(t *testing.T) {
	var samples []Sample
	for h := 0; h < 24; h++ {
		samples = append(samples, at(h, float64(h), 0))
	}
	m, ok := Aggregate(samples, SunWindow{Sunrise: 7, Sunset: 18}, Offsets{Start: 2, End: 1})
	require.True(t, ok)
	// hours 9..17
	require.Equal(t, 9, m.Samples)
	require.InDelta(t, 13.0, m.TempC, 1e-9)
}

func TestAggregateZeroMeanIsAResult(t *testing.T) {
	m, ok := Aggregate([]Sample{at(12, 0, 0)}, SunWindow{Sunrise: 8, Sunset: 17}, DefaultOffsets)
	require.True(t, ok)
	require.Equal(t, 0.0, m.TempC)
	require.Equal(t, 0.0, m.CloudPct)
}

func TestAggregateDoesNotReorderInput(t *testing.T) {
	samples := []Sample{at(11, 7, 60), at(10, 5, 50)}
	_, ok := Aggregate(samples, SunWindow{Sunrise: 8, Sunset: 13}, DefaultOffsets)
	require.True(t, ok)
	require.Equal(t, 11, samples[0].Time.Hour())

	sorted := SortByTime(samples)
	require.Equal(t, 10, sorted[0].Time.Hour())
}
