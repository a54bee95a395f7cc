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
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Builder accumulates rows and produces Batches. It is a host-side helper
// for tests and tooling; production batches arrive from the task runtime
// already columnar.
type Builder struct {
	schema *arrow.Schema
	rb     *array.RecordBuilder
}

// NewBuilder creates a builder for the given schema.
func NewBuilder(schema *arrow.Schema) *Builder {
	return &Builder{
		schema: schema,
		rb:     array.NewRecordBuilder(memory.DefaultAllocator, schema),
	}
}

// Append adds one row. Values must match the schema's field order; nil
// appends a null.
func (b *Builder) Append(values ...any) error {
	if len(values) != len(b.schema.Fields()) {
		return fmt.Errorf("row has %d values, schema has %d fields", len(values), len(b.schema.Fields()))
	}
	for i, v := range values {
		if v == nil {
			b.rb.Field(i).AppendNull()
			continue
		}
		if err := appendValue(b.rb.Field(i), v); err != nil {
			return fmt.Errorf("append value to column %s: %w", b.schema.Field(i).Name, err)
		}
	}
	return nil
}

// NewBatch finalizes the accumulated rows into a Batch and resets the
// builder for reuse.
func (b *Builder) NewBatch() *Batch {
	return New(b.rb.NewRecord())
}

// Release frees builder memory. Call when done producing batches.
func (b *Builder) Release() {
	b.rb.Release()
}

func appendValue(bldr array.Builder, v any) error {
	switch bb := bldr.(type) {
	case *array.Int64Builder:
		switch n := v.(type) {
		case int64:
			bb.Append(n)
		case int:
			bb.Append(int64(n))
		case float64: // JSON numbers decode as float64
			bb.Append(int64(n))
		default:
			return fmt.Errorf("cannot append %T to int64 column", v)
		}
	case *array.Float64Builder:
		switch n := v.(type) {
		case float64:
			bb.Append(n)
		case int:
			bb.Append(float64(n))
		case int64:
			bb.Append(float64(n))
		default:
			return fmt.Errorf("cannot append %T to float64 column", v)
		}
	case *array.StringBuilder:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("cannot append %T to string column", v)
		}
		bb.Append(s)
	case *array.BooleanBuilder:
		t, ok := v.(bool)
		if !ok {
			return fmt.Errorf("cannot append %T to bool column", v)
		}
		bb.Append(t)
	case *array.BinaryBuilder:
		raw, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("cannot append %T to binary column", v)
		}
		bb.Append(raw)
	case *array.TimestampBuilder:
		switch n := v.(type) {
		case arrow.Timestamp:
			bb.Append(n)
		case int64:
			bb.Append(arrow.Timestamp(n))
		default:
			return fmt.Errorf("cannot append %T to timestamp column", v)
		}
	default:
		return fmt.Errorf("unsupported builder type %T", bldr)
	}
	return nil
}
