package delivery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AWSConfig is an immutable set of static AWS credentials plus a region.
type AWSConfig struct {
	accessKeyID     string
	secretAccessKey string
	region          string
}

// NewAWSConfig validates the credential fields and returns an AWSConfig.
func NewAWSConfig(accessKeyID, secretAccessKey, region string) (AWSConfig, error) {
	if strings.TrimSpace(accessKeyID) == "" {
		return AWSConfig{}, fmt.Errorf("access key id cannot be empty")
	}
	if strings.TrimSpace(secretAccessKey) == "" {
		return AWSConfig{}, fmt.Errorf("secret access key cannot be empty")
	}
	if strings.TrimSpace(region) == "" {
		return AWSConfig{}, fmt.Errorf("region cannot be empty")
	}
	return AWSConfig{
		accessKeyID:     accessKeyID,
		secretAccessKey: secretAccessKey,
		region:          region,
	}, nil
}

// AccessKeyID returns the access key id.
func (c AWSConfig) AccessKeyID() string { return c.accessKeyID }

// SecretAccessKey returns the secret access key.
func (c AWSConfig) SecretAccessKey() string { return c.secretAccessKey }

// Region returns the region.
func (c AWSConfig) Region() string { return c.region }

// s3API is the slice of the S3 SDK surface the delivery client uses. It is
// satisfied by *s3.Client; tests substitute a mock.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Delivery uploads rendered documents to S3 buckets. An S3Delivery is not
// safe for concurrent use; UploadMany manages its own workers.
type S3Delivery struct {
	client s3API
	region string
	logger *slog.Logger
}

// NewS3Delivery creates an S3Delivery authenticated with the static
// credentials in cfg.
func NewS3Delivery(ctx context.Context, cfg AWSConfig, logger *slog.Logger) (*S3Delivery, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region()),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID(), cfg.SecretAccessKey(), "")),
		config.WithRetryMaxAttempts(3),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3DeliveryFromConfig(awsCfg, logger), nil
}

// NewS3DeliveryFromProfile creates an S3Delivery from a named profile in the
// shared AWS config files. The credential chain resolves keys, roles and
// sessions the usual way. An empty region keeps the profile's region.
func NewS3DeliveryFromProfile(ctx context.Context, profile, region string, logger *slog.Logger) (*S3Delivery, error) {
	if strings.TrimSpace(profile) == "" {
		return nil, fmt.Errorf("profile name cannot be empty")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithSharedConfigProfile(profile),
		config.WithRetryMaxAttempts(3),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for profile %s: %w", profile, err)
	}
	return NewS3DeliveryFromConfig(awsCfg, logger), nil
}

// NewS3DeliveryFromConfig creates an S3Delivery from an already resolved
// AWS configuration.
func NewS3DeliveryFromConfig(awsCfg aws.Config, logger *slog.Logger) *S3Delivery {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Delivery{
		client: s3.NewFromConfig(awsCfg),
		region: awsCfg.Region,
		logger: logger,
	}
}

// Region returns the region the client was configured with.
func (d *S3Delivery) Region() string {
	return d.region
}

// UploadFile streams a local file to s3://bucket/key.
func (d *S3Delivery) UploadFile(ctx context.Context, localPath, bucket, key string) error {
	if strings.TrimSpace(localPath) == "" {
		return fmt.Errorf("local path cannot be empty")
	}
	if strings.TrimSpace(bucket) == "" {
		return fmt.Errorf("bucket cannot be empty")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("object key cannot be empty")
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("file %s does not exist", localPath)
	}
	if info.IsDir() {
		return fmt.Errorf("path %s is a directory, not a file", localPath)
	}

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer file.Close()

	if _, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	}); err != nil {
		return fmt.Errorf("failed to upload %s to bucket %s: %w", key, bucket, err)
	}

	d.logger.Info("Uploaded object.", "bucket", bucket, "key", key, "bytes", info.Size())
	return nil
}

// DownloadFile fetches s3://bucket/key into localPath, creating parent
// directories. The local file appears atomically via a temp file and rename.
func (d *S3Delivery) DownloadFile(ctx context.Context, bucket, key, localPath string) error {
	if strings.TrimSpace(bucket) == "" {
		return fmt.Errorf("bucket cannot be empty")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("object key cannot be empty")
	}
	if strings.TrimSpace(localPath) == "" {
		return fmt.Errorf("local path cannot be empty")
	}

	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	result, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to get object %s from bucket %s: %w", key, bucket, err)
	}
	defer result.Body.Close()

	tmp, err := os.CreateTemp(dir, ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, result.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write object data to %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), localPath); err != nil {
		return fmt.Errorf("failed to move downloaded file into place: %w", err)
	}

	d.logger.Info("Downloaded object.", "bucket", bucket, "key", key, "local", localPath)
	return nil
}

// UploadItem names one local file and its destination key for UploadMany.
type UploadItem struct {
	LocalPath string
	Key       string
}

// UploadResult reports the outcome of a single UploadMany item.
type UploadResult struct {
	Item     UploadItem
	Bytes    int64
	Duration time.Duration
	Err      error
}

// BatchConfig tunes UploadMany.
type BatchConfig struct {
	WorkerCount int
}

// SetDefaults applies default values for unset fields.
func (c *BatchConfig) SetDefaults() {
	if c.WorkerCount == 0 {
		c.WorkerCount = 1
	}
}

// Validate checks the configuration for correctness.
func (c *BatchConfig) Validate() error {
	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.WorkerCount)
	}
	return nil
}

// BatchUploadReport aggregates the outcome of an UploadMany run. Results
// holds one entry per input item, in input order.
type BatchUploadReport struct {
	Results  []UploadResult
	Uploaded int
	Failed   int
	Stats    *TransferStats
	Elapsed  time.Duration
}

// FirstError returns the first item error in input order, or nil when every
// item uploaded.
func (r *BatchUploadReport) FirstError() error {
	for _, res := range r.Results {
		if res.Err != nil {
			return fmt.Errorf("upload %s: %w", res.Item.Key, res.Err)
		}
	}
	return nil
}

type uploadJob struct {
	idx  int
	item UploadItem
}

// UploadMany uploads the items to the bucket through a bounded worker pool.
// Every item gets an UploadResult; a failed item never aborts its siblings.
// The returned error is non-nil only when the batch could not start.
func (d *S3Delivery) UploadMany(ctx context.Context, bucket string, items []UploadItem, cfg BatchConfig) (*BatchUploadReport, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch config: %w", err)
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket cannot be empty")
	}

	report := &BatchUploadReport{
		Results: make([]UploadResult, len(items)),
		Stats:   NewTransferStats(),
	}
	start := time.Now()

	workChan := make(chan uploadJob, len(items))
	for i, item := range items {
		workChan <- uploadJob{idx: i, item: item}
	}
	close(workChan)

	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range workChan {
				res := UploadResult{Item: job.item}
				if info, err := os.Stat(job.item.LocalPath); err == nil {
					res.Bytes = info.Size()
				}

				jobStart := time.Now()
				if err := ctx.Err(); err != nil {
					res.Err = err
				} else {
					res.Err = d.UploadFile(ctx, job.item.LocalPath, bucket, job.item.Key)
				}
				res.Duration = time.Since(jobStart)

				report.Stats.Record(res.Duration, res.Err == nil, res.Bytes)
				report.Results[job.idx] = res
			}
		}()
	}
	wg.Wait()

	for _, res := range report.Results {
		if res.Err != nil {
			report.Failed++
		} else {
			report.Uploaded++
		}
	}
	report.Elapsed = time.Since(start)

	d.logger.Info("Batch upload complete.",
		"bucket", bucket, "uploaded", report.Uploaded, "failed", report.Failed, "stats", report.Stats.String())
	return report, nil
}
