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

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"boilerctl/internal/config"
	"boilerctl/internal/events"
	"boilerctl/pkg/eventbus"

	"github.com/stretchr/testify/require"
)

func outcome() events.OutcomeUpdate {
	minutes := 150
	temp, cloud := 12.5, 40.0
	return events.OutcomeUpdate{
		Date:            "2025-03-14",
		Status:          "success",
		DurationMinutes: &minutes,
		Boiler1Minutes:  120,
		Boiler2Minutes:  30,
		MeanTempC:       &temp,
		MeanCloudPct:    &cloud,
		RunID:           "abc",
		Attempts:        2,
		UpdatedToday:    true,
		Time:            time.Date(2025, 3, 14, 17, 12, 0, 0, time.UTC),
	}
}

func TestFormatPayload(t *testing.T) {
	raw, err := FormatPayload(outcome())
	require.NoError(t, err)

	var p map[string]any
	require.NoError(t, json.Unmarshal(raw, &p))
	require.Equal(t, "success", p["status"])
	require.Equal(t, 150.0, p["duration_minutes"])
	require.Equal(t, 120.0, p["boiler_1_minutes"])
	require.Equal(t, "2025-03-14T17:12:00Z", p["timestamp"])
	require.NotContains(t, p, "error")
}

func TestFailedPayloadKeepsNullDuration(t *testing.T) {
	o := events.OutcomeUpdate{Date: "2025-03-14", Status: "failed", Error: "insufficient data", Code: "INSUFFICIENT_DATA"}
	raw, err := FormatPayload(o)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"duration_minutes":null`)
	require.Contains(t, string(raw), `"code":"INSUFFICIENT_DATA"`)
}

func TestNotifierPublishesOutcomes(t *testing.T) {
	eb := eventbus.New()
	fake := NewFakePublisher()
	n := newNotifier(eb, "home/boiler/daily", func() (Publisher, error) { return fake, nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx)
		close(done)
	}()

	// Run subscribes before connecting; give it a moment
	require.Eventually(t, func() bool {
		eb.Publish(events.TopicOutcome, outcome())
		return fake.Count() > 0
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	<-done

	require.Equal(t, "home/boiler/daily", fake.Topics[0])
	require.True(t, fake.Closed)
}

func TestNotifierRetriesDial(t *testing.T) {
	eb := eventbus.New()
	fake := NewFakePublisher()
	attempts := 0
	n := newNotifier(eb, "t", func() (Publisher, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("refused")
		}
		return fake, nil
	})
	n.retryWait = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pub := n.connect(ctx)
	require.Equal(t, fake, pub)
	require.Equal(t, 3, attempts)
}

func TestNotifierDisabledWithoutBroker(t *testing.T) {
	require.Nil(t, New(&config.Config{EventBus: eventbus.New()}))
}
