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

package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/cardinalhq/accelwriter/internal/accel"
	"github.com/cardinalhq/accelwriter/internal/accelparquet"
	"github.com/cardinalhq/accelwriter/internal/colbatch"
	"github.com/cardinalhq/accelwriter/internal/destination"
	"github.com/cardinalhq/accelwriter/internal/idgen"
)

func init() {
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write NDJSON rows through the accelerated pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWrite(cmd.Context())
		},
	}

	cmd.Flags().String("input", "-", "NDJSON input file, - for stdin")
	cmd.Flags().String("output", "", "destination directory or s3:// prefix")
	cmd.Flags().String("schema", "", "output schema, e.g. id:int64,name:string")
	cmd.Flags().String("codec", "SNAPPY", "compression codec (NONE, UNCOMPRESSED, SNAPPY)")
	cmd.Flags().Int("tasks", 4, "number of parallel write tasks")
	cmd.Flags().Int("batch-rows", 50000, "rows per columnar batch")
	cmd.Flags().String("tmpdir", "", "local staging directory")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("schema")
	_ = viper.BindPFlags(cmd.Flags())

	rootCmd.AddCommand(cmd)
}

func runWrite(ctx context.Context) error {
	schema, err := parseSchema(viper.GetString("schema"))
	if err != nil {
		return err
	}

	check := accelparquet.CapabilityCheck{
		Codec:              viper.GetString("codec"),
		TimestampPrecision: accelparquet.TimestampMicros,
	}
	if decision := accelparquet.CanAccelerate(check); !decision.Accepted() {
		return fmt.Errorf("accelerated write not possible: %s", decision.Reason())
	}

	output := viper.GetString("output")
	dest, err := newDestinationClient(ctx, output)
	if err != nil {
		return err
	}

	settings := accelparquet.Settings{
		Codec:              viper.GetString("codec"),
		TimestampPrecision: accelparquet.TimestampMicros,
	}
	env := accelparquet.Env{
		Resources:   accel.NewResourceManager(),
		Destination: dest,
		TmpDir:      viper.GetString("tmpdir"),
	}
	desc, factory, err := accelparquet.Configure(settings, nil, schema, env)
	if err != nil {
		return err
	}

	batches := make(chan *colbatch.Batch, 1)
	group, ctx := errgroup.WithContext(ctx)

	tasks := viper.GetInt("tasks")
	if tasks < 1 {
		tasks = 1
	}
	for i := range tasks {
		group.Go(func() error {
			task := accelparquet.TaskContext{
				TaskID:    fmt.Sprintf("task-%03d", i),
				Partition: i,
			}
			for batch := range batches {
				destPath := outputPath(output, i, desc.FileExtension())
				writer := factory.NewWriter(destPath, task)
				result, err := writer.WriteBatch(ctx, batch)
				if err != nil {
					return fmt.Errorf("task %s: %w", task.TaskID, err)
				}
				slog.Info("batch committed",
					slog.String("task", task.TaskID),
					slog.String("dest", destPath),
					slog.Int64("encodeNanos", result.EncodeNanos))
			}
			return nil
		})
	}

	group.Go(func() error {
		defer close(batches)
		return readBatches(ctx, viper.GetString("input"), schema, viper.GetInt("batch-rows"), batches)
	})

	return group.Wait()
}

// outputPath builds a part file name unique across tasks and batches.
func outputPath(output string, partition int, ext string) string {
	name := fmt.Sprintf("part-%05d-%s%s", partition, strings.ToLower(idgen.NextID()), ext)
	if strings.HasPrefix(output, "s3://") {
		return strings.TrimSuffix(output, "/") + "/" + name
	}
	return filepath.Join(output, name)
}

func newDestinationClient(ctx context.Context, output string) (destination.Client, error) {
	if !strings.HasPrefix(output, "s3://") {
		return destination.NewFileClient(), nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return destination.NewS3Client(s3.NewFromConfig(cfg)), nil
}

// readBatches streams NDJSON rows into columnar batches of batchRows each.
func readBatches(ctx context.Context, input string, schema accelparquet.Schema, batchRows int, out chan<- *colbatch.Batch) error {
	var r io.Reader = os.Stdin
	if input != "-" && input != "" {
		f, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	if batchRows < 1 {
		batchRows = 1
	}

	builder := colbatch.NewBuilder(schema.ArrowSchema())
	defer builder.Release()

	send := func(b *colbatch.Batch) error {
		select {
		case out <- b:
			return nil
		case <-ctx.Done():
			b.Release()
			return ctx.Err()
		}
	}

	rows := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("parse input row %d: %w", rows, err)
		}
		values := make([]any, len(schema))
		for i, col := range schema {
			values[i] = row[col.Name]
		}
		if err := builder.Append(values...); err != nil {
			return fmt.Errorf("input row %d: %w", rows, err)
		}
		rows++
		if rows%batchRows == 0 {
			if err := send(builder.NewBatch()); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if rows%batchRows != 0 || rows == 0 {
		batch := builder.NewBatch()
		if batch.NumRows() == 0 {
			batch.Release()
			return nil
		}
		return send(batch)
	}
	return nil
}

// parseSchema parses "name:type,..." into the ordered output schema.
func parseSchema(s string) (accelparquet.Schema, error) {
	if s == "" {
		return nil, fmt.Errorf("schema is required")
	}
	var schema accelparquet.Schema
	for _, part := range strings.Split(s, ",") {
		name, typ, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed schema column %q", part)
		}
		dt, err := parseDataType(typ)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		schema = append(schema, accelparquet.Column{Name: name, Type: dt})
	}
	return schema, nil
}

func parseDataType(typ string) (arrow.DataType, error) {
	switch strings.ToLower(typ) {
	case "int64", "long":
		return arrow.PrimitiveTypes.Int64, nil
	case "float64", "double":
		return arrow.PrimitiveTypes.Float64, nil
	case "string":
		return arrow.BinaryTypes.String, nil
	case "bool", "boolean":
		return arrow.FixedWidthTypes.Boolean, nil
	case "binary", "bytes":
		return arrow.BinaryTypes.Binary, nil
	case "timestamp":
		return arrow.FixedWidthTypes.Timestamp_us, nil
	default:
		return nil, fmt.Errorf("unsupported type %q", typ)
	}
}
