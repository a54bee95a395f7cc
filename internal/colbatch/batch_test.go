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

package colbatch

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/require"
)

func testSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
}

func TestBuilderProducesBatch(t *testing.T) {
	builder := NewBuilder(testSchema())
	defer builder.Release()

	require.NoError(t, builder.Append(int64(1), "alpha"))
	require.NoError(t, builder.Append(int64(2), "beta"))
	require.NoError(t, builder.Append(nil, "gamma"))

	batch := builder.NewBatch()
	defer batch.Release()

	require.Equal(t, int64(3), batch.NumRows())
	require.Equal(t, int64(2), batch.Record().NumCols())
	require.True(t, batch.Record().Column(0).IsNull(2))
}

func TestBuilderRejectsArityMismatch(t *testing.T) {
	builder := NewBuilder(testSchema())
	defer builder.Release()

	require.Error(t, builder.Append(int64(1)))
	require.Error(t, builder.Append("one", int64(1)))
}

func TestBatchReleaseIdempotent(t *testing.T) {
	builder := NewBuilder(testSchema())
	defer builder.Release()
	require.NoError(t, builder.Append(int64(1), "alpha"))

	batch := builder.NewBatch()
	require.False(t, batch.Released())

	batch.Release()
	require.True(t, batch.Released())

	// Second release must not double-free the buffers.
	batch.Release()
	require.True(t, batch.Released())
}

func TestBuilderReuseAfterNewBatch(t *testing.T) {
	builder := NewBuilder(testSchema())
	defer builder.Release()

	require.NoError(t, builder.Append(int64(1), "alpha"))
	first := builder.NewBatch()
	defer first.Release()

	require.NoError(t, builder.Append(int64(2), "beta"))
	require.NoError(t, builder.Append(int64(3), "gamma"))
	second := builder.NewBatch()
	defer second.Release()

	require.Equal(t, int64(1), first.NumRows())
	require.Equal(t, int64(2), second.NumRows())
}
