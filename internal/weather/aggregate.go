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
	"slices"
)

// Window returns the inclusive hour range analysed for win.
func Window(win SunWindow, off Offsets) (start, end int) {
	return win.Sunrise + off.Start, win.Sunset - off.End
}

// Aggregate averages temperature and cloud cover over the samples whose
// hour falls inside the trimmed sun window. ok is false when no sample
// qualifies, which is different from a legitimate mean of zero.
func Aggregate(samples []Sample, win SunWindow, off Offsets) (Means, bool) {
	start, end := Window(win, off)
	if len(samples) == 0 {
		return Means{WindowStart: start, WindowEnd: end}, false
	}

	var sumT, sumC float64
	n := 0
	for _, s := range SortByTime(samples) {
		h := s.Time.Hour()
		if h < start || h > end {
			continue
		}
		sumT += s.TempC
		sumC += s.CloudPct
		n++
	}

	if n == 0 {
		return Means{WindowStart: start, WindowEnd: end}, false
	}
	return Means{
		TempC:       sumT / float64(n),
		CloudPct:    sumC / float64(n),
		Samples:     n,
		WindowStart: start,
		WindowEnd:   end,
	}, true
}

// SortByTime returns a copy of samples ordered by time.
func SortByTime(samples []Sample) []Sample {
	sorted := slices.Clone(samples)
	slices.SortStableFunc(sorted, func(a, b Sample) int {
		return a.Time.Compare(b.Time)
	})
	return sorted
}
