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

package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestPublishKeepsOnlyLatest(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, _ := b.Subscribe(ctx, "t", false)
	b.Publish("t", 1)
	b.Publish("t", 2)
	b.Publish("t", 3)

	require.Equal(t, 3, recv(t, ch))
	require.Equal(t, int64(3), b.Stats().Published)
	require.Equal(t, int64(2), b.Stats().Replaced)
}

func TestSubscribeWithLast(t *testing.T) {
	b := New()
	b.Publish("t", "hello")

	ch, unsub := b.Subscribe(context.Background(), "t", true)
	defer unsub()
	require.Equal(t, "hello", recv(t, ch))

	v, ok := b.GetLast("t")
	require.True(t, ok)
	require.Equal(t, "hello", v)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(context.Background(), "t", false)
	unsub()
	unsub()

	select {
	case _, ok := <-ch:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestCloseThenCancel(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx, "t", false)

	b.Close()
	cancel()

	_, ok := <-ch
	require.False(t, ok)

	b.Publish("t", 1)
	_, has := b.GetLast("t")
	require.False(t, has)

	late, _ := b.Subscribe(context.Background(), "t", true)
	_, ok = <-late
	require.False(t, ok)
}
