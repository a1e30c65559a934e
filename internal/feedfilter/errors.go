// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package feedfilter

import "errors"

var (
	// ErrNotHeader is returned when the first row of the input has no id column.
	ErrNotHeader = errors.New("first row is not a header: missing id column")

	// ErrMissingColumn is wrapped for every required column the header lacks.
	ErrMissingColumn = errors.New("missing required column")

	// ErrNoHeader is returned for an input without any rows.
	ErrNoHeader = errors.New("input has no header row")

	// ErrAlreadyStarted is returned when Start or Run is called twice on one Engine.
	ErrAlreadyStarted = errors.New("engine already started")
)
