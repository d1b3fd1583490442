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

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindAndCodeSurviveWrapping(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("update boiler: %w", HubWrite("HA_UPDATE_FAIL", "set input_number.boiler_1", base))

	require.True(t, Is(err, KindHubWrite))
	require.False(t, Is(err, KindHubRead))
	require.Equal(t, "HA_UPDATE_FAIL", CodeOf(err))
	require.ErrorIs(t, err, base)
	require.Equal(t, "update boiler: set input_number.boiler_1: connection refused", err.Error())
}

func TestPlainErrors(t *testing.T) {
	err := errors.New("x")
	require.False(t, Is(err, KindConfig))
	require.Empty(t, CodeOf(err))
	require.Equal(t, "bad table", Config("bad table", nil).Error())
}
