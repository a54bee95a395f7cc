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

package destination

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// fileClient writes to local or mounted filesystems. Destination paths are
// plain file paths.
type fileClient struct{}

// NewFileClient returns a client for filesystem destinations.
func NewFileClient() Client {
	return &fileClient{}
}

// Copy lands localPath at destPath, creating parent directories as needed.
// O_EXCL enforces the non-overwrite contract.
func (c *fileClient) Copy(ctx context.Context, localPath, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open source file %s: %w", localPath, err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, destPath)
		}
		return fmt.Errorf("create destination file %s: %w", destPath, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(destPath)
		return fmt.Errorf("copy to %s: %w", destPath, err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(destPath)
		return fmt.Errorf("close destination file %s: %w", destPath, err)
	}
	return nil
}
