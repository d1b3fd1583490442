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

package hub

import (
	"boilerctl/internal/config"
	"boilerctl/pkg/apperr"
	"boilerctl/pkg/logger"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// EntityState is the subset of /api/states/<id> we use.
type EntityState struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged time.Time      `json:"last_changed"`
}

// Client talks to the Home Assistant REST API.
type Client struct {
	log   *logger.Logger
	http  *http.Client
	cb    *gobreaker.CircuitBreaker
	base  string
	token string
}

func NewClient(appConf *config.Config) *Client {
	return New(appConf.Hub.BaseURL, appConf.Hub.Token, time.Duration(appConf.Hub.TimeoutSeconds)*time.Second)
}

func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		log:  logger.New("Hub"),
		http: &http.Client{Timeout: timeout},
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "hub",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 10
			},
		}),
		base:  strings.TrimRight(baseURL, "/"),
		token: token,
	}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	_, err := c.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
		}
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil, nil
		}
		return nil, json.NewDecoder(resp.Body).Decode(out)
	})
	return err
}

// Entity reads the full state object of an entity.
func (c *Client) Entity(ctx context.Context, entityID string) (EntityState, error) {
	var st EntityState
	err := c.do(ctx, http.MethodGet, "/api/states/"+url.PathEscape(entityID), nil, &st)
	if err != nil {
		return EntityState{}, apperr.HubRead("get state of "+entityID, err)
	}
	return st, nil
}

// EntityState returns just the state string of an entity.
func (c *Client) EntityState(ctx context.Context, entityID string) (string, error) {
	st, err := c.Entity(ctx, entityID)
	if err != nil {
		return "", err
	}
	c.log.Debug("%s = %s", entityID, st.State)
	return st.State, nil
}

// SetNumber sets an input_number entity. value is clamped to [lo, hi]
// before sending.
func (c *Client) SetNumber(ctx context.Context, entityID string, value, lo, hi int) error {
	v := max(lo, min(value, hi))
	if v != value {
		c.log.Warn("%s: %d clamped to %d (range %d-%d)", entityID, value, v, lo, hi)
	}

	body := map[string]any{"entity_id": entityID, "value": v}
	if err := c.do(ctx, http.MethodPost, "/api/services/input_number/set_value", body, nil); err != nil {
		return apperr.HubWrite("HA_UPDATE_FAIL", "set "+entityID, err)
	}
	c.log.Info("%s set to %d", entityID, v)
	return nil
}

// ScriptEntity accepts "script.x" or "x" and returns "script.x".
func ScriptEntity(id string) string {
	if strings.HasPrefix(id, "script.") {
		return id
	}
	return "script." + id
}

// RunScript turns a script on.
func (c *Client) RunScript(ctx context.Context, scriptID string) error {
	entityID := ScriptEntity(scriptID)
	body := map[string]any{"entity_id": entityID}
	if err := c.do(ctx, http.MethodPost, "/api/services/script/turn_on", body, nil); err != nil {
		return apperr.HubWrite("SCRIPT_EXEC_FAIL", "run "+entityID, err)
	}
	c.log.Info("%s started", entityID)
	return nil
}
