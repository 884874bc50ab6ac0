// Package metricsink buffers recorded metric values and flushes them to S3
// as Parquet objects, partitioned by run.
//
// Adapted from the AWS client-construction pattern in the teacher's
// lode.NewLodeS3Client (config.LoadDefaultConfig + optional custom
// endpoint/path-style overrides) and the partition-key shape of
// lode.Config/toEventRecordMap, retargeted from JSONL event envelopes to
// Parquet rows of recorded workout metrics.
package metricsink

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/parquet-go/parquet-go"

	"github.com/SergeiGolos/wod-wiki-sub004/log"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// DefaultFlushSize is the number of buffered rows that triggers an
// automatic flush.
const DefaultFlushSize = 500

// Config configures the S3 destination and partitioning for flushed
// Parquet objects.
type Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers.
	Endpoint string
	// UsePathStyle forces path-style addressing, required by most
	// S3-compatible providers.
	UsePathStyle bool
	// RunID partitions objects under prefix/run_id=<RunID>/.
	RunID string
	// FlushSize overrides DefaultFlushSize when positive.
	FlushSize int
}

func (c *Config) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("metricsink: bucket is required")
	}
	if c.RunID == "" {
		return fmt.Errorf("metricsink: run id is required")
	}
	return nil
}

// MetricRow is a single recorded metric value flattened for Parquet
// storage. Value is carried both as a display string (always present)
// and an optional numeric column so analytic queries can aggregate
// without parsing.
type MetricRow struct {
	RunID       string  `parquet:"run_id"`
	BlockKey    string  `parquet:"block_key"`
	ExerciseID  string  `parquet:"exercise_id,optional"`
	Type        string  `parquet:"type"`
	ValueText   string  `parquet:"value_text,optional"`
	ValueNumber float64 `parquet:"value_number,optional"`
	HasNumber   bool    `parquet:"has_number"`
	Unit        string  `parquet:"unit,optional"`
	Source      string  `parquet:"source,optional"`
	RecordedAt  int64   `parquet:"recorded_at"`
}

// s3Client is the subset of the S3 API the sink depends on, narrowed for
// testability.
type s3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Sink buffers MetricRow values and flushes them as Parquet objects to S3.
// Safe for concurrent use; Handle may be called from the script runtime's
// drain loop while another goroutine calls Flush.
type Sink struct {
	config Config
	client s3Client
	logger *log.SugaredLogger

	mu     sync.Mutex
	buffer []MetricRow
	seq    int
}

// New creates a metric sink backed by a real S3 client built from the
// default AWS credential chain.
func New(cfg Config, logger *log.SugaredLogger) (*Sink, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.FlushSize <= 0 {
		cfg.FlushSize = DefaultFlushSize
	}

	ctx := context.Background()
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("metricsink: load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return newSinkWithClient(cfg, s3.NewFromConfig(awsConfig, s3Opts...), logger), nil
}

// newSinkWithClient builds a sink around an injected S3 client, used by
// tests to avoid real network calls.
func newSinkWithClient(cfg Config, client s3Client, logger *log.SugaredLogger) *Sink {
	return &Sink{config: cfg, client: client, logger: logger}
}

// Handle buffers an ActionEmitMetric action's values. Non-metric actions
// are ignored. Never returns an error: once the buffer reaches FlushSize
// rows, Handle calls Flush synchronously (an S3 upload inside the
// caller's drain loop) and logs a flush failure.
func (s *Sink) Handle(action types.Action) {
	if action.Kind != types.ActionEmitMetric {
		return
	}
	payload, ok := action.Payload.(types.EmitMetricPayload)
	if !ok {
		s.logger.Warnf("metricsink: unexpected payload type for %s", action.Kind)
		return
	}

	var blockKey string
	if len(payload.TimeSpans) > 0 {
		blockKey = fmt.Sprintf("%d", payload.TimeSpans[0].Start.UnixNano())
	}

	now := time.Now().UnixNano()
	rows := make([]MetricRow, 0, len(payload.Values))
	for _, v := range payload.Values {
		row := MetricRow{
			RunID:      s.config.RunID,
			BlockKey:   blockKey,
			ExerciseID: payload.ExerciseID,
			Type:       string(v.Type),
			ValueText:  fmt.Sprintf("%v", v.Value),
			Unit:       v.Unit,
			Source:     v.Source,
			RecordedAt: now,
		}
		if n, ok := v.Value.(float64); ok {
			row.ValueNumber = n
			row.HasNumber = true
		}
		rows = append(rows, row)
	}

	s.mu.Lock()
	s.buffer = append(s.buffer, rows...)
	shouldFlush := len(s.buffer) >= s.config.FlushSize
	s.mu.Unlock()

	if shouldFlush {
		if err := s.Flush(context.Background()); err != nil {
			s.logger.Warnf("metricsink: flush: %v", err)
		}
	}
}

// Flush writes the currently buffered rows as a single Parquet object and
// clears the buffer. A no-op when nothing is buffered.
func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return nil
	}
	rows := s.buffer
	s.buffer = nil
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[MetricRow](&buf)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("metricsink: encode parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("metricsink: close parquet writer: %w", err)
	}

	key := s.objectKey(seq)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("metricsink: put object %s: %w", key, err)
	}
	return nil
}

func (s *Sink) objectKey(seq int) string {
	prefix := s.config.Prefix
	if prefix != "" && prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	return fmt.Sprintf("%srun_id=%s/part-%05d.parquet", prefix, s.config.RunID, seq)
}

// Pending returns the number of buffered, unflushed rows. Exposed for
// tests and diagnostics.
func (s *Sink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}
