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

package hassws

import (
	"boilerctl/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ---------- Types ----------
// SEE: https://developers.home-assistant.io/docs/api/websocket

// Message is any frame sent by Home Assistant.
type Message struct {
	ID   int    `json:"id,omitempty"`
	Type string `json:"type"`

	// auth frames
	HAVersion string `json:"ha_version,omitempty"`
	Message   string `json:"message,omitempty"`

	// result type
	Success bool            `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`

	// event type
	Event json.RawMessage `json:"event,omitempty"`
}

// State is one entity state object.
type State struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	LastChanged time.Time      `json:"last_changed"`
}

// Event is the payload of an "event" frame.
type Event struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	TimeFired time.Time       `json:"time_fired"`
}

// StateChange is the data of a state_changed event. Old is nil for new
// entities, New is nil for removed ones.
type StateChange struct {
	EntityID  string    `json:"entity_id"`
	Old       *State    `json:"old_state"`
	New       *State    `json:"new_state"`
	TimeFired time.Time `json:"-"`
}

var ErrAuth = errors.New("hassws: authentication failed")

// Client manages websocket communication
type Client struct {
	url       string
	token     string
	conn      *websocket.Conn
	mu        sync.Mutex
	nextID    int
	statesID  int
	onStates  func([]State)
	onChange  func(StateChange)
	retryWait time.Duration
	log       *logger.Logger
}

// ---------- Public API ----------

func NewClient(url, token string) *Client {
	return &Client{
		url:       url,
		token:     token,
		retryWait: 5 * time.Second,
		log:       logger.New("HassWS"),
	}
}

// OnStates sets the callback for the full state list sent after connect.
func (c *Client) OnStates(fn func([]State)) {
	c.onStates = fn
}

// OnStateChanged sets the callback for state_changed events.
func (c *Client) OnStateChanged(fn func(StateChange)) {
	c.onChange = fn
}

func (c *Client) RetryWait() time.Duration {
	return c.retryWait
}

// Connect dials, authenticates, subscribes to state_changed and asks for
// the current states. It is a no-op when already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// already connected
	if c.conn != nil {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.url, nil)
	if err != nil {
		c.log.Error("connect failed: %v (%v), retrying in %s", err, c.url, c.retryWait)
		return err
	}

	if err := c.authenticate(conn); err != nil {
		conn.Close()
		return err
	}

	c.nextID = 0
	c.nextID++
	sub := map[string]any{"id": c.nextID, "type": "subscribe_events", "event_type": "state_changed"}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe_events: %w", err)
	}

	c.nextID++
	c.statesID = c.nextID
	if err := conn.WriteJSON(map[string]any{"id": c.statesID, "type": "get_states"}); err != nil {
		conn.Close()
		return fmt.Errorf("get_states: %w", err)
	}

	// When the context is cancelled, close the websocket to unblock reads
	go func() {
		<-ctx.Done()
		c.Close()
	}()

	c.conn = conn
	c.log.Info("Connected")
	return nil
}

func (c *Client) authenticate(conn *websocket.Conn) error {
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("read auth_required: %w", err)
	}
	if msg.Type != "auth_required" {
		return fmt.Errorf("unexpected first message %q", msg.Type)
	}

	if err := conn.WriteJSON(map[string]any{"type": "auth", "access_token": c.token}); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}

	msg = Message{}
	if err := conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("read auth result: %w", err)
	}
	switch msg.Type {
	case "auth_ok":
		c.log.Debug("authenticated, ha_version %s", msg.HAVersion)
		return nil
	case "auth_invalid":
		c.log.Error("auth rejected: %s", msg.Message)
		return ErrAuth
	default:
		return fmt.Errorf("unexpected auth reply %q", msg.Type)
	}
}

// Close stops the client
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		tmpConn := c.conn
		c.conn = nil
		tmpConn.Close()
		c.log.Info("Closed")
	}
}

// ListenNext reads and dispatches one frame.
func (c *Client) ListenNext() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("hassws: not connected")
	}

	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		c.mu.Lock()
		closed := c.conn == nil
		c.mu.Unlock()
		if closed {
			return nil // was closed
		}
		c.log.Error("ReadMessage: %v", err)
		return err
	}

	switch msg.Type {
	case "result":
		c.handleResult(msg)
	case "event":
		c.handleEvent(msg)
	case "pong":
	default:
		c.log.Info("unhandled message type: %s", msg.Type)
	}
	return nil
}

// ---------- Internal ----------

func (c *Client) handleResult(msg Message) {
	if !msg.Success {
		if msg.Error != nil {
			c.log.Error("request %d failed: %s %s", msg.ID, msg.Error.Code, msg.Error.Message)
		} else {
			c.log.Error("request %d failed", msg.ID)
		}
		return
	}
	if msg.ID != c.statesID || c.onStates == nil {
		return
	}

	var states []State
	if err := json.Unmarshal(msg.Result, &states); err != nil {
		c.log.Error("Unmarshal of get_states result: %v", err)
		return
	}
	c.onStates(states)
}

func (c *Client) handleEvent(msg Message) {
	if c.onChange == nil {
		return
	}
	var ev Event
	if err := json.Unmarshal(msg.Event, &ev); err != nil {
		c.log.Error("Unmarshal of Event: %v", err)
		return
	}
	if ev.EventType != "state_changed" {
		return
	}
	var sc StateChange
	if err := json.Unmarshal(ev.Data, &sc); err != nil {
		c.log.Error("Unmarshal of state_changed data: %v", err)
		return
	}
	sc.TimeFired = ev.TimeFired
	c.onChange(sc)
}
