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

package staging

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateUniqueNames(t *testing.T) {
	tmpdir := t.TempDir()

	a, err := Create(tmpdir, ".parquet")
	require.NoError(t, err)
	b, err := Create(tmpdir, ".parquet")
	require.NoError(t, err)

	require.NotEqual(t, a.Path(), b.Path())

	_, err = os.Stat(a.Path())
	require.NoError(t, err)

	require.NoError(t, a.Remove())
	require.NoError(t, b.Remove())
}

func TestRemoveIdempotent(t *testing.T) {
	tmpdir := t.TempDir()

	s, err := Create(tmpdir, ".snappy.parquet")
	require.NoError(t, err)

	require.NoError(t, s.Remove())
	_, err = os.Stat(s.Path())
	require.True(t, os.IsNotExist(err))

	// Second removal is a no-op.
	require.NoError(t, s.Remove())

	entries, err := os.ReadDir(tmpdir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestCloseHandleThenRemove(t *testing.T) {
	tmpdir := t.TempDir()

	s, err := Create(tmpdir, ".parquet")
	require.NoError(t, err)

	_, err = s.Handle().WriteString("payload")
	require.NoError(t, err)

	require.NoError(t, s.CloseHandle())
	require.Nil(t, s.Handle())

	// CloseHandle is idempotent too.
	require.NoError(t, s.CloseHandle())

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))

	require.NoError(t, s.Remove())
	_, err = os.Stat(s.Path())
	require.True(t, os.IsNotExist(err))
}

func TestRemoveMissingFile(t *testing.T) {
	tmpdir := t.TempDir()

	s, err := Create(tmpdir, ".parquet")
	require.NoError(t, err)
	require.NoError(t, s.CloseHandle())

	// Something else removed the file out from under us.
	require.NoError(t, os.Remove(s.Path()))
	require.NoError(t, s.Remove())
}
