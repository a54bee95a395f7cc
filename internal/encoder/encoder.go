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

// Package encoder defines the native encoder capability: encode a columnar
// batch to Parquet bytes given a column-name and key/value-metadata
// contract. The output must be structurally indistinguishable from the
// engine's default writer so downstream readers cannot tell the origin.
package encoder

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
)

// Compression identifies the output compression of the encoder.
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionSnappy Compression = "snappy"
)

// Encoder writes one batch of columns as a complete Parquet file.
type Encoder interface {
	// Encode writes rec to dst as Parquet. columnNames override the record's
	// field names (the descriptor owns the output schema names); metadata is
	// embedded as file-level key/value metadata.
	Encode(ctx context.Context, rec arrow.Record, columnNames []string, metadata map[string]string, dst *os.File) error

	// Name returns the encoder implementation name.
	Name() string
}

// Type identifies which encoder implementation to use.
type Type string

const (
	// TypeArrow encodes via Apache Arrow's Parquet writer.
	TypeArrow Type = "arrow"

	// DefaultType is used when no encoder type is specified.
	DefaultType = TypeArrow
)

// New creates an encoder of the given type.
func New(t Type, compression Compression) (Encoder, error) {
	switch t {
	case TypeArrow, "":
		return newArrowEncoder(compression)
	default:
		return nil, fmt.Errorf("unknown encoder type %q", t)
	}
}
