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

package boiler

import (
	"context"
	"time"
)

// journal levels, same strings as the journal package
const (
	journalInfo  = "INFO"
	journalWarn  = "WARNING"
	journalError = "ERROR"
)

// activate starts the boiler through the activation script and waits for
// the guard entity to report "on". It returns an empty code on success.
func (m *Machine) activate(ctx context.Context) (code, errMsg string) {
	j := m.deps.Journal
	guard := m.set.GuardEntity

	before, err := m.deps.Hub.EntityState(ctx, guard)
	if err != nil {
		j.Event(journalError, "Failed to read boiler state", CodeHubRead, map[string]any{
			"entity": guard,
			"error":  err.Error(),
		})
		return CodeHubRead, "failed to read " + guard
	}
	if before != "off" {
		j.Event(journalWarn, "Boiler already ON, skipping activation script", CodeAlreadyOn, map[string]any{
			"entity": guard,
			"state":  before,
		})
		return CodeAlreadyOn, "boiler already on"
	}

	if err := m.deps.Hub.RunScript(ctx, m.set.ActivationScript); err != nil {
		j.Event(journalError, "Failed to execute boiler start script", CodeScriptExec, map[string]any{
			"script": m.set.ActivationScript,
			"error":  err.Error(),
		})
		return CodeScriptExec, "failed to execute boiler start script"
	}

	if !m.waitForOn(ctx, guard) {
		j.Event(journalError, "Failed to activate boiler after setting duration", CodeActivationTimeout, map[string]any{
			"entity":  guard,
			"timeout": m.set.ConfirmTimeout.String(),
		})
		return CodeActivationTimeout, "boiler did not turn on within " + m.set.ConfirmTimeout.String()
	}

	j.Event(journalInfo, "Boiler start script executed successfully", "", map[string]any{"script": m.set.ActivationScript})
	return "", ""
}

// waitForOn polls the guard entity until it reads "on", the confirmation
// timeout passes or ctx ends. Read errors are logged and polling goes on.
func (m *Machine) waitForOn(ctx context.Context, entity string) bool {
	ctx, cancel := context.WithTimeout(ctx, m.set.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(m.set.ConfirmInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			state, err := m.deps.Hub.EntityState(ctx, entity)
			if err != nil {
				m.log.Warn("confirm %s: %v", entity, err)
				continue
			}
			if state == "on" {
				return true
			}
		}
	}
}
