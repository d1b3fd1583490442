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

package hubwatch

import (
	"boilerctl/internal/config"
	"boilerctl/internal/events"
	"boilerctl/pkg/eventbus"
	"boilerctl/pkg/hassws"
	"boilerctl/pkg/logger"
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

type listener interface {
	Connect(ctx context.Context) error
	ListenNext() error
	Close()
	OnStates(fn func([]hassws.State))
	OnStateChanged(fn func(hassws.StateChange))
	RetryWait() time.Duration
}

// Entity is the last known state of a watched entity.
type Entity struct {
	EntityID string    `json:"entity_id"`
	State    string    `json:"state"`
	Changed  time.Time `json:"changed"`
}

// Watcher keeps a live view of the boiler entities over the hub's
// websocket API and republishes changes on the event bus.
type Watcher struct {
	log     *logger.Logger
	eb      *eventbus.Bus
	client  listener
	watched map[string]bool

	mu       sync.RWMutex
	entities map[string]Entity
}

func New(appConf *config.Config) *Watcher {
	client := hassws.NewClient(appConf.Hub.WebsocketURL, appConf.Hub.Token)
	return newWatcher(appConf, client)
}

func newWatcher(appConf *config.Config, client listener) *Watcher {
	watched := map[string]bool{}
	for _, id := range []string{
		appConf.Hub.BoilerEntity1,
		appConf.Hub.BoilerEntity2,
		appConf.Hub.GuardEntity,
	} {
		if id != "" {
			watched[id] = true
		}
	}

	w := &Watcher{
		log:      logger.New("HubWatch"),
		eb:       appConf.EventBus,
		client:   client,
		watched:  watched,
		entities: make(map[string]Entity),
	}
	client.OnStates(w.handleStates)
	client.OnStateChanged(w.handleChange)
	return w
}

func (w *Watcher) Run(ctx context.Context) {
	w.log.Info("starting hub watcher")
	defer w.log.Info("stopping hub watcher")

	for {
		select {
		case <-ctx.Done():
			w.client.Close()
			return
		default:
		}

		if err := w.client.Connect(ctx); err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.client.RetryWait()):
			}
			continue
		}
		if err := w.client.ListenNext(); err != nil {
			w.client.Close()
		}
	}
}

func (w *Watcher) handleStates(states []hassws.State) {
	for _, st := range states {
		if !w.watched[st.EntityID] {
			continue
		}
		w.update(st.EntityID, st.State, st.LastChanged)
	}
}

func (w *Watcher) handleChange(sc hassws.StateChange) {
	if !w.watched[sc.EntityID] || sc.New == nil {
		return
	}
	w.update(sc.EntityID, sc.New.State, sc.TimeFired)
}

func (w *Watcher) update(id, state string, at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}

	w.mu.Lock()
	prev, seen := w.entities[id]
	if seen && prev.State == state {
		w.mu.Unlock()
		return
	}
	w.entities[id] = Entity{EntityID: id, State: state, Changed: at}
	w.mu.Unlock()

	w.log.Info("%s: %q -> %q", id, prev.State, state)
	if w.eb != nil {
		w.eb.Publish(events.TopicHubEntity, events.EntityUpdate{
			EntityID: id,
			State:    state,
			Previous: prev.State,
			Time:     at,
		})
	}
}

// Entities returns the known states sorted by entity id.
func (w *Watcher) Entities() []Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Entity, 0, len(w.entities))
	for _, e := range w.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

func (w *Watcher) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "", "/", "/api/entities":
		rw.Header().Set("Content-Type", "application/json; charset=utf-8")
		enc := json.NewEncoder(rw)
		enc.SetIndent("", "  ")
		_ = enc.Encode(w.Entities())
	default:
		http.NotFound(rw, r)
	}
}
