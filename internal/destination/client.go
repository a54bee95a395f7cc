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

// Package destination copies fully formed local files to their final
// location. Copies never overwrite: atomic visibility of the result is the
// host committer's job, this layer only lands bytes at a caller-unique path.
package destination

import (
	"context"
	"errors"
)

// ErrAlreadyExists is returned when the destination path is already
// occupied. Wrapped errors preserve it for errors.Is.
var ErrAlreadyExists = errors.New("destination already exists")

// Client copies a local file to a destination path without overwriting.
type Client interface {
	// Copy transfers localPath to destPath. Fails with ErrAlreadyExists if
	// destPath is occupied.
	Copy(ctx context.Context, localPath, destPath string) error
}
