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

package apperr

import "errors"

// Kind groups errors by how the caller should react to them.
type Kind string

const (
	// KindConfig is fatal, startup only.
	KindConfig Kind = "config"
	// KindDataFetch covers weather retrieval and stored weather loads.
	KindDataFetch Kind = "data_fetch"
	KindHubRead   Kind = "hub_read"
	KindHubWrite  Kind = "hub_write"
)

// Error carries a machine readable code next to the message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, code, message string, err error) error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Config(message string, err error) error {
	return newError(KindConfig, "CONFIG_INVALID", message, err)
}

func DataFetch(code, message string, err error) error {
	return newError(KindDataFetch, code, message, err)
}

func HubRead(message string, err error) error {
	return newError(KindHubRead, "HUB_READ_FAIL", message, err)
}

func HubWrite(code, message string, err error) error {
	return newError(KindHubWrite, code, message, err)
}

// Is reports whether any error in err's chain is of kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
