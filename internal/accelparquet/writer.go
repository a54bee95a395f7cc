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
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardinalhq/accelwriter/internal/accel"
	"github.com/cardinalhq/accelwriter/internal/colbatch"
	"github.com/cardinalhq/accelwriter/internal/destination"
	"github.com/cardinalhq/accelwriter/internal/encoder"
	"github.com/cardinalhq/accelwriter/internal/staging"
)

var tracer = otel.Tracer("github.com/cardinalhq/accelwriter/internal/accelparquet")

// CommitResult is the per-batch metric returned to the caller: elapsed
// accelerator-side encode time. Transfer time is deliberately excluded.
type CommitResult struct {
	EncodeNanos int64
}

// StagedWriter writes batches for one task to one destination file. It owns
// each batch it is handed and releases it exactly once on every code path,
// holds the accelerator lease only for the duration of the encode, and
// stages output locally before the final copy.
//
// Batches within a task are processed strictly sequentially; StagedWriter is
// not safe for concurrent use.
type StagedWriter struct {
	desc     *JobDescriptor
	res      *accel.ResourceManager
	enc      encoder.Encoder
	dest     destination.Client
	tmpDir   string
	destPath string
	task     TaskContext
}

// DestPath returns the final destination path for this writer's output.
func (w *StagedWriter) DestPath() string {
	return w.destPath
}

// WriteBatch encodes one batch and commits it to the destination path.
//
// The call moves through encode, accelerator release, then transfer. The
// lease and the batch buffers are released as soon as the encode finishes,
// before the copy starts: the copy does not need the accelerator and must
// not hold it hostage behind destination I/O latency. On every exit path
// the batch is released, the lease is released, and the staging file is
// deleted.
func (w *StagedWriter) WriteBatch(ctx context.Context, batch *colbatch.Batch) (result CommitResult, err error) {
	defer batch.Release()
	defer w.res.ReleaseIfHeld(w.task.TaskID)

	stage, err := staging.Create(w.tmpDir, w.desc.FileExtension())
	if err != nil {
		return CommitResult{}, fmt.Errorf("stage batch: %w", err)
	}
	defer func() {
		if rerr := stage.Remove(); rerr != nil {
			err = multierror.Append(err, rerr).ErrorOrNil()
		}
	}()

	start := time.Now()

	encodeErr := w.encodeToStage(ctx, batch, stage)

	// The encoder is done with the device buffers either way. Free them and
	// hand the accelerator to the next waiting task before any transfer I/O.
	batch.Release()
	w.res.ReleaseIfHeld(w.task.TaskID)

	if encodeErr != nil {
		return CommitResult{}, &EncodeError{Err: encodeErr}
	}

	elapsed := time.Since(start).Nanoseconds()

	if err := stage.CloseHandle(); err != nil {
		return CommitResult{}, fmt.Errorf("finalize staging file: %w", err)
	}
	if err := w.dest.Copy(ctx, stage.Path(), w.destPath); err != nil {
		return CommitResult{}, &TransferError{Dest: w.destPath, Err: err}
	}

	return CommitResult{EncodeNanos: elapsed}, nil
}

// encodeToStage acquires the accelerator lease and drives the native
// encoder into the staging file, under a named tracing span bracketing the
// encode for external profiling tools.
func (w *StagedWriter) encodeToStage(ctx context.Context, batch *colbatch.Batch, stage *staging.File) error {
	ctx, span := tracer.Start(ctx, "accelparquet.encodeBatch",
		trace.WithAttributes(
			attribute.String("task", w.task.TaskID),
			attribute.Int("partition", w.task.Partition),
			attribute.Int64("rows", batch.NumRows()),
		),
	)
	defer span.End()

	if err := w.res.Acquire(ctx, w.task.TaskID); err != nil {
		return fmt.Errorf("acquire accelerator: %w", err)
	}

	return w.enc.Encode(ctx, batch.Record(), w.desc.ColumnNames(), w.desc.Metadata(), stage.Handle())
}
