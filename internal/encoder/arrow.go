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

package encoder

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// arrowEncoder encodes batches with Arrow's streaming Parquet writer.
type arrowEncoder struct {
	codec compress.Compression
}

func newArrowEncoder(compression Compression) (*arrowEncoder, error) {
	var codec compress.Compression
	switch compression {
	case CompressionNone, "":
		codec = compress.Codecs.Uncompressed
	case CompressionSnappy:
		codec = compress.Codecs.Snappy
	default:
		return nil, fmt.Errorf("unsupported compression %q", compression)
	}
	return &arrowEncoder{codec: codec}, nil
}

// Name returns the encoder name.
func (e *arrowEncoder) Name() string {
	return "arrow"
}

// Encode writes rec to dst as one complete Parquet file. The record's
// columns are re-labeled with columnNames and metadata becomes file-level
// key/value metadata.
func (e *arrowEncoder) Encode(ctx context.Context, rec arrow.Record, columnNames []string, metadata map[string]string, dst *os.File) error {
	if int64(len(columnNames)) != rec.NumCols() {
		return fmt.Errorf("got %d column names for %d columns", len(columnNames), rec.NumCols())
	}

	schema, err := renameSchema(rec.Schema(), columnNames, metadata)
	if err != nil {
		return err
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(e.codec),
		parquet.WithDictionaryDefault(true),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithStoreSchema(),
	)

	writer, err := pqarrow.NewFileWriter(schema, dst, writerProps, arrowProps)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}

	relabeled := array.NewRecord(schema, rec.Columns(), rec.NumRows())
	defer relabeled.Release()

	if err := writer.Write(relabeled); err != nil {
		_ = writer.Close()
		return fmt.Errorf("write record batch: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// renameSchema rebuilds the record schema with the descriptor's column names
// and the extra key/value metadata.
func renameSchema(in *arrow.Schema, names []string, metadata map[string]string) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(in.Fields()))
	for i, f := range in.Fields() {
		if names[i] == "" {
			return nil, fmt.Errorf("empty column name at index %d", i)
		}
		f.Name = names[i]
		fields[i] = f
	}
	md := arrow.MetadataFrom(metadata)
	return arrow.NewSchema(fields, &md), nil
}
