package upload

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gametriol/InductionMainPage2k25/internal/models"
	apperrors "github.com/gametriol/InductionMainPage2k25/pkg/errors"
	"github.com/gametriol/InductionMainPage2k25/pkg/logger"
	"github.com/gametriol/InductionMainPage2k25/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BackendS3 labels metrics and logs of the object storage backend
const BackendS3 = "s3"

// KeyPrefix is the folder uploaded application images are stored under
const KeyPrefix = "applications/"

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ObjectStorageSettings configures an S3-compatible bucket
type ObjectStorageSettings struct {
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string
	Region          string
}

// ObjectStorageClient stores images in an S3-compatible bucket and returns their public URL
type ObjectStorageClient struct {
	s3Client   objectPutter
	bucketName string
	endpoint   string
	missing    string
	newKey     func(ext string) string
}

// NewObjectStorageClient creates an object storage upload client. Missing
// settings are reported by Upload, not here.
func NewObjectStorageClient(s ObjectStorageSettings) *ObjectStorageClient {
	endpoint := strings.TrimRight(strings.TrimSpace(s.Endpoint), "/")
	region := s.Region
	if region == "" {
		region = "us-east-1"
	}

	c := &ObjectStorageClient{
		bucketName: s.BucketName,
		endpoint:   endpoint,
		newKey:     newObjectKey,
	}

	switch {
	case s.AccessKeyID == "":
		c.missing = "OBJECT_STORAGE_ACCESS_KEY_ID"
	case s.SecretAccessKey == "":
		c.missing = "OBJECT_STORAGE_SECRET_ACCESS_KEY"
	case s.BucketName == "":
		c.missing = "OBJECT_STORAGE_BUCKET_NAME"
	case endpoint == "":
		c.missing = "OBJECT_STORAGE_ENDPOINT"
	}
	if c.missing != "" {
		return c
	}

	c.s3Client = s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		UsePathStyle: true,
		Credentials: credentials.NewStaticCredentialsProvider(
			s.AccessKeyID,
			s.SecretAccessKey,
			"",
		),
	})

	logger.Info("Object storage upload client initialized",
		zap.String("bucket", s.BucketName),
		zap.String("endpoint", endpoint),
		zap.String("region", region),
	)

	return c
}

// Upload stores the image under a fresh key and returns its public URL
func (c *ObjectStorageClient) Upload(ctx context.Context, image *models.ImageFile) (string, error) {
	if c.missing != "" {
		return "", apperrors.ConfigurationError(c.missing, "Image storage")
	}
	if image == nil {
		return "", apperrors.InvalidInputError("imageFile", "no image selected")
	}

	start := time.Now()
	key := c.newKey(extensionFor(image))

	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(image.Data),
		ContentType:   aws.String(image.ContentType),
		ContentLength: aws.Int64(int64(len(image.Data))),
	})

	duration := metrics.MeasureDuration(start)

	if err != nil {
		metrics.UploadRequestDuration.WithLabelValues(BackendS3, "error").Observe(duration)
		metrics.UploadRequestTotal.WithLabelValues(BackendS3, "error").Inc()
		logger.LogAPICall("object_storage", "putObject", "error", duration,
			zap.Error(err),
			zap.String("key", key),
		)
		return "", apperrors.TransportError("Image upload failed", err)
	}

	metrics.UploadRequestDuration.WithLabelValues(BackendS3, "success").Observe(duration)
	metrics.UploadRequestTotal.WithLabelValues(BackendS3, "success").Inc()
	logger.LogAPICall("object_storage", "putObject", "success", duration,
		zap.String("key", key),
		zap.Int("size_bytes", len(image.Data)),
	)

	// Format: {endpoint}/{bucket}/{key}
	return fmt.Sprintf("%s/%s/%s", c.endpoint, c.bucketName, key), nil
}

func newObjectKey(ext string) string {
	return KeyPrefix + uuid.NewString() + ext
}

// extensionFor picks the stored file extension from the content type, falling back to the file name
func extensionFor(image *models.ImageFile) string {
	switch strings.ToLower(image.ContentType) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	}
	return strings.ToLower(filepath.Ext(image.FileName))
}
