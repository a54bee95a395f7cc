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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	uploadCount metric.Int64Counter
	uploadBytes metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/accelwriter/internal/destination")

	var err error
	uploadCount, err = meter.Int64Counter(
		"accelwriter.s3.upload.count",
		metric.WithDescription("Number of S3 uploads"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create upload.count counter: %w", err))
	}

	uploadBytes, err = meter.Int64Counter(
		"accelwriter.s3.upload.bytes",
		metric.WithDescription("Bytes uploaded to S3"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create upload.bytes counter: %w", err))
	}
}

// s3Client writes to S3-compatible object stores. Destination paths are
// s3://bucket/key URLs.
type s3Client struct {
	client *s3.Client
	tracer trace.Tracer
}

// NewS3Client returns a client for S3 destinations.
func NewS3Client(client *s3.Client) Client {
	return &s3Client{
		client: client,
		tracer: otel.Tracer("github.com/cardinalhq/accelwriter/internal/destination"),
	}
}

// ParseS3URL splits an s3://bucket/key URL.
func ParseS3URL(destPath string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(destPath, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 URL: %s", destPath)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 URL: %s", destPath)
	}
	return bucket, key, nil
}

// Copy uploads localPath to the s3://bucket/key destination. A conditional
// put (If-None-Match: *) enforces the non-overwrite contract server-side.
func (c *s3Client) Copy(ctx context.Context, localPath, destPath string) error {
	bucket, key, err := ParseS3URL(destPath)
	if err != nil {
		return err
	}

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open source file %s: %w", localPath, err)
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat source file: %w", err)
	}

	var span trace.Span
	ctx, span = c.tracer.Start(ctx, "destination.s3Copy",
		trace.WithAttributes(
			attribute.String("bucket", bucket),
		),
	)
	defer span.End()

	uploader := manager.NewUploader(c.client)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        file,
		IfNoneMatch: aws.String("*"),
		ContentType: aws.String("application/vnd.apache.parquet"),
		Metadata: map[string]string{
			"writer": "accelwriter-go",
		},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, destPath)
		}
		return fmt.Errorf("upload to %s: %w", destPath, err)
	}

	uploadCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("bucket", bucket),
	))
	uploadBytes.Add(ctx, stat.Size(), metric.WithAttributes(
		attribute.String("bucket", bucket),
	))

	return nil
}
