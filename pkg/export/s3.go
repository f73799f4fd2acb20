package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dd0wney/cluso-community/pkg/logging"
	"github.com/dd0wney/cluso-community/pkg/metrics"
	"github.com/dd0wney/cluso-community/pkg/resultstore"
)

// Config configures the S3 exporter
type Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint,omitempty"`   // custom endpoint for S3-compatible stores
	AccessKey string `yaml:"access_key,omitempty"` // static credentials; default chain when empty
	SecretKey string `yaml:"secret_key,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"` // object key prefix
}

// Validate checks the exporter configuration
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("export bucket cannot be empty")
	}
	if c.Region == "" {
		return errors.New("export region cannot be empty")
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return errors.New("access key and secret key must be set together")
	}
	return nil
}

// objectPutter is the slice of the S3 client the exporter needs
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Exporter archives job results and snapshot files to S3
type Exporter struct {
	client   objectPutter
	cfg      Config
	logger   logging.Logger
	registry *metrics.Registry
}

// New builds an S3 exporter from configuration
func New(ctx context.Context, cfg Config, logger logging.Logger, registry *metrics.Registry) (*Exporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newWithClient(client, cfg, logger, registry), nil
}

// newWithClient wires an exporter around an existing client
func newWithClient(client objectPutter, cfg Config, logger logging.Logger, registry *metrics.Registry) *Exporter {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Exporter{
		client:   client,
		cfg:      cfg,
		logger:   logger.With(logging.Component("export")),
		registry: registry,
	}
}

// ExportResult uploads one job result as JSON.
// Object key: <prefix>/results/<job id>.json
func (e *Exporter) ExportResult(ctx context.Context, result *resultstore.JobResult) error {
	if result == nil {
		return errors.New("result cannot be nil")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	key := e.objectKey("results", result.ID+".json")
	return e.put(ctx, key, data, "application/json")
}

// ExportSnapshot uploads a snapshot file.
// Object key: <prefix>/snapshots/<file name>
func (e *Exporter) ExportSnapshot(ctx context.Context, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read snapshot file: %w", err)
	}

	key := e.objectKey("snapshots", path.Base(filePath))
	return e.put(ctx, key, data, "application/octet-stream")
}

// put performs a single upload and records its outcome
func (e *Exporter) put(ctx context.Context, key string, data []byte, contentType string) error {
	start := time.Now()

	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})

	status := "success"
	if err != nil {
		status = "error"
	}
	if e.registry != nil {
		e.registry.RecordExport(status, time.Since(start))
	}

	if err != nil {
		e.logger.Error("Export upload failed",
			logging.String("key", key),
			logging.Error(err))
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	e.logger.Info("Exported object",
		logging.String("key", key),
		logging.Int("bytes", len(data)),
		logging.Latency(time.Since(start)))
	return nil
}

// objectKey joins the configured prefix with the object path
func (e *Exporter) objectKey(parts ...string) string {
	if e.cfg.Prefix != "" {
		parts = append([]string{e.cfg.Prefix}, parts...)
	}
	return path.Join(parts...)
}
