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

package accelparquet

import (
	"strings"

	"github.com/cardinalhq/accelwriter/internal/encoder"
)

// Codec identifies the output compression codec by its engine-facing name.
type Codec string

const (
	CodecNone         Codec = "NONE"
	CodecUncompressed Codec = "UNCOMPRESSED"
	CodecSnappy       Codec = "SNAPPY"
)

// ParseCodec normalizes an engine codec name.
func ParseCodec(name string) Codec {
	return Codec(strings.ToUpper(strings.TrimSpace(name)))
}

// Supported reports whether the accelerated path can produce this codec.
// Anything outside this set is an explicit rejection, never a silent
// downgrade.
func (c Codec) Supported() bool {
	switch c {
	case CodecNone, CodecUncompressed, CodecSnappy:
		return true
	default:
		return false
	}
}

// extension is the codec part of the file extension contract
// (<codec-suffix>.parquet). NONE and UNCOMPRESSED carry no suffix.
func (c Codec) extension() string {
	if c == CodecSnappy {
		return ".snappy"
	}
	return ""
}

func (c Codec) compression() encoder.Compression {
	if c == CodecSnappy {
		return encoder.CompressionSnappy
	}
	return encoder.CompressionNone
}

// TimestampPrecision identifies the engine's output timestamp type.
type TimestampPrecision string

const (
	// TimestampMicros is the one precision the accelerator supports.
	TimestampMicros TimestampPrecision = "TIMESTAMP_MICROS"

	// TimestampMillis is explicitly deferred: rejected with a reason, never
	// silently downgraded to micros.
	TimestampMillis TimestampPrecision = "TIMESTAMP_MILLIS"
)

// SummaryLevel controls commit-summary metadata verbosity.
type SummaryLevel string

const (
	SummaryNone     SummaryLevel = "NONE"
	SummaryRowGroup SummaryLevel = "ROW_GROUP"
	SummaryAll      SummaryLevel = "ALL"
)
