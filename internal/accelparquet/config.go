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
	"log/slog"
	"maps"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/cardinalhq/accelwriter/internal/accel"
	"github.com/cardinalhq/accelwriter/internal/destination"
	"github.com/cardinalhq/accelwriter/internal/encoder"
)

// metadataOptionPrefix marks write options carried into the output file as
// key/value metadata (e.g. user-defined-type hints from the format's
// write-support contract).
const metadataOptionPrefix = "metadata."

// optionCommitter selects the output committer class; empty means the
// format's standard committer.
const optionCommitter = "committer"

// Column is one output column.
type Column struct {
	Name string
	Type arrow.DataType
}

// Schema is the ordered output schema.
type Schema []Column

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// ArrowSchema converts to the interchange schema used by batches.
func (s Schema) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(s))
	for i, c := range s {
		fields[i] = arrow.Field{Name: c.Name, Type: c.Type, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// Settings are the session-wide write settings the configurator consumes.
type Settings struct {
	Codec              string
	LegacyFormat       bool
	TimestampPrecision TimestampPrecision
	SummaryLevel       SummaryLevel
}

// committer is the resolved output committer. The commit protocol itself
// (atomic rename, visibility) belongs to the host engine; only the name and
// the summary capability matter here.
type committer struct {
	name            string
	supportsSummary bool
}

// standardCommitter is the format's default committer; it can produce
// per-job summary metadata.
var standardCommitter = committer{name: "standard", supportsSummary: true}

func resolveCommitter(name string) committer {
	if name == "" || name == standardCommitter.name {
		return standardCommitter
	}
	// Custom committers are opaque; assume no summary support.
	return committer{name: name}
}

// JobDescriptor is the immutable per-job write descriptor, shared read-only
// by every task's writer.
type JobDescriptor struct {
	schema    Schema
	codec     Codec
	precision TimestampPrecision
	summary   SummaryLevel
	committer committer
	metadata  map[string]string
}

// Codec returns the compression codec for the job.
func (d *JobDescriptor) Codec() Codec {
	return d.codec
}

// TimestampPrecision returns the output timestamp precision.
func (d *JobDescriptor) TimestampPrecision() TimestampPrecision {
	return d.precision
}

// SummaryLevel returns the effective commit-summary verbosity.
func (d *JobDescriptor) SummaryLevel() SummaryLevel {
	return d.summary
}

// CommitterName returns the resolved committer class name.
func (d *JobDescriptor) CommitterName() string {
	return d.committer.name
}

// ColumnNames returns the output column names in schema order.
func (d *JobDescriptor) ColumnNames() []string {
	return d.schema.Names()
}

// Schema returns a copy of the ordered output schema.
func (d *JobDescriptor) Schema() Schema {
	out := make(Schema, len(d.schema))
	copy(out, d.schema)
	return out
}

// Metadata returns a copy of the extra file key/value metadata.
func (d *JobDescriptor) Metadata() map[string]string {
	out := make(map[string]string, len(d.metadata))
	maps.Copy(out, d.metadata)
	return out
}

// FileExtension returns the <codec-suffix>.parquet extension contract,
// e.g. ".snappy.parquet", or plain ".parquet" when uncompressed.
func (d *JobDescriptor) FileExtension() string {
	return d.codec.extension() + ".parquet"
}

// Env carries the injected collaborators the writers need. The resource
// manager is explicit here so there is no hidden process-wide accelerator
// state and tests can substitute their own.
type Env struct {
	Resources   *accel.ResourceManager
	Encoder     encoder.Encoder
	Destination destination.Client

	// TmpDir is the local staging directory; defaults to os.TempDir().
	TmpDir string
}

// Configure validates the job settings and produces the immutable
// descriptor plus the per-task writer factory.
//
// The legacy-format and timestamp-precision constraints the gate already
// checked are re-validated here: gate and configure may run in different
// phases, and a violation must fail at job start, never as a per-batch
// error.
func Configure(settings Settings, options map[string]string, schema Schema, env Env) (*JobDescriptor, *WriterFactory, error) {
	codec := ParseCodec(settings.Codec)
	if !codec.Supported() {
		return nil, nil, &ConfigError{Field: "compression", Message: "codec " + string(codec) + " is not supported by the accelerated writer"}
	}
	if settings.LegacyFormat {
		return nil, nil, &ConfigError{Field: "legacyFormat", Message: "legacy format is not supported by the accelerated writer"}
	}
	if settings.TimestampPrecision != TimestampMicros {
		return nil, nil, &ConfigError{Field: "timestampPrecision", Message: string(settings.TimestampPrecision) + " is not supported by the accelerated writer"}
	}
	if len(schema) == 0 {
		return nil, nil, &ConfigError{Field: "schema", Message: "cannot be empty"}
	}
	if env.Resources == nil {
		return nil, nil, &ConfigError{Field: "env.Resources", Message: "resource manager is required"}
	}
	if env.Destination == nil {
		return nil, nil, &ConfigError{Field: "env.Destination", Message: "destination client is required"}
	}

	enc := env.Encoder
	if enc == nil {
		var err error
		enc, err = encoder.New(encoder.DefaultType, codec.compression())
		if err != nil {
			return nil, nil, &ConfigError{Field: "encoder", Message: err.Error()}
		}
	}

	cmt := resolveCommitter(options[optionCommitter])

	// Summaries default off: generation is costly and rarely consumed.
	summary := SummaryNone
	if settings.SummaryLevel != "" && settings.SummaryLevel != SummaryNone {
		if cmt.supportsSummary {
			summary = settings.SummaryLevel
		} else {
			// Best effort only: degrade, never fail the job.
			slog.Warn("committer cannot produce job summaries, disabling",
				slog.String("committer", cmt.name),
				slog.String("requested", string(settings.SummaryLevel)))
		}
	}

	metadata := make(map[string]string)
	for k, v := range options {
		if name, ok := strings.CutPrefix(k, metadataOptionPrefix); ok && name != "" {
			metadata[name] = v
		}
	}

	tmpDir := env.TmpDir
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}

	desc := &JobDescriptor{
		schema:    append(Schema(nil), schema...),
		codec:     codec,
		precision: settings.TimestampPrecision,
		summary:   summary,
		committer: cmt,
		metadata:  metadata,
	}
	factory := &WriterFactory{
		desc:   desc,
		res:    env.Resources,
		enc:    enc,
		dest:   env.Destination,
		tmpDir: tmpDir,
	}
	return desc, factory, nil
}

// TaskContext identifies the task a writer belongs to.
type TaskContext struct {
	// TaskID identifies the task attempt; it keys the accelerator lease.
	TaskID string

	// Partition is the output partition index, for diagnostics.
	Partition int
}

// WriterFactory produces one StagedWriter per destination file.
type WriterFactory struct {
	desc   *JobDescriptor
	res    *accel.ResourceManager
	enc    encoder.Encoder
	dest   destination.Client
	tmpDir string
}

// NewWriter creates the writer for one destination file. destPath must be
// unique across concurrent writers; the caller guarantees that.
func (f *WriterFactory) NewWriter(destPath string, task TaskContext) *StagedWriter {
	return &StagedWriter{
		desc:     f.desc,
		res:      f.res,
		enc:      f.enc,
		dest:     f.dest,
		tmpDir:   f.tmpDir,
		destPath: destPath,
		task:     task,
	}
}
