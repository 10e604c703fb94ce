package ladle

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ReleaseBucket wraps the S3 client for the release bucket. Works with any
// S3-compatible endpoint (AWS, R2, MinIO).
type ReleaseBucket struct {
	Client     *s3.Client
	BucketName string
}

// NewReleaseBucket initializes the bucket client from configuration values.
func NewReleaseBucket(cfg *Config) (*ReleaseBucket, error) {
	endpoint := cfg.Values["LADLE_S3_ENDPOINT"]
	accessKey := cfg.Values["LADLE_S3_ACCESS_KEY_ID"]
	secretKey := cfg.Values["LADLE_S3_SECRET_ACCESS_KEY"]
	bucketName := cfg.Values["LADLE_S3_BUCKET"]
	region := cfg.Values["LADLE_S3_REGION"]
	if region == "" {
		region = "auto"
	}

	if endpoint == "" || accessKey == "" || secretKey == "" || bucketName == "" {
		return nil, fmt.Errorf("S3 credentials missing in configuration (LADLE_S3_ENDPOINT, LADLE_S3_ACCESS_KEY_ID, LADLE_S3_SECRET_ACCESS_KEY, LADLE_S3_BUCKET)")
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{URL: endpoint}, nil
	})

	options := []func(*config.LoadOptions) error{
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		config.WithRegion(region),
	}

	if Debug {
		options = append(options, config.WithClientLogMode(aws.LogSigning|aws.LogRetries|aws.LogRequest|aws.LogResponse))
	}

	awsCfg, err := config.LoadDefaultConfig(context.TODO(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &ReleaseBucket{
		Client:     client,
		BucketName: bucketName,
	}, nil
}

// UploadLocalFile uploads a file from disk under the given key.
func (r *ReleaseBucket) UploadLocalFile(ctx context.Context, key, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	contentType := "application/octet-stream"
	switch {
	case strings.HasSuffix(key, ".tar.gz"):
		contentType = "application/gzip"
	case strings.HasSuffix(key, ".tar.xz"):
		contentType = "application/x-xz"
	case strings.HasSuffix(key, ".tar.zst"):
		contentType = "application/zstd"
	case strings.HasSuffix(key, ".b3sum"):
		contentType = "text/plain"
	}

	_, err = r.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.BucketName),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(stat.Size()),
		ContentType:   aws.String(contentType),
	})
	return err
}
