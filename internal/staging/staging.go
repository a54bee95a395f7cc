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

// Package staging provides per-call local staging files with guaranteed
// deletion. A staging file's lifecycle is scoped to a single batch write:
// created at entry, removed at exit regardless of outcome.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/cardinalhq/accelwriter/internal/idgen"
)

// File is a uniquely named local staging file.
type File struct {
	path    string
	f       *os.File
	removed atomic.Bool
}

// Create makes a new staging file under dir. The name embeds a ULID so no
// two calls collide; ext should include the leading dot.
func Create(dir, ext string) (*File, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "stage-"+idgen.NextID()+ext)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}
	return &File{path: path, f: f}, nil
}

// Path returns the staging file's location on local disk.
func (s *File) Path() string {
	return s.path
}

// Handle returns the open write handle. Nil after CloseHandle.
func (s *File) Handle() *os.File {
	return s.f
}

// CloseHandle flushes and closes the write handle. The file stays on disk
// until Remove.
func (s *File) CloseHandle() error {
	if s.f == nil {
		return nil
	}
	f := s.f
	s.f = nil
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close staging file: %w", err)
	}
	return nil
}

// Remove deletes the staging file. Idempotent; a missing file is not an
// error.
func (s *File) Remove() error {
	if !s.removed.CompareAndSwap(false, true) {
		return nil
	}
	if s.f != nil {
		_ = s.f.Close()
		s.f = nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove staging file %s: %w", s.path, err)
	}
	return nil
}
