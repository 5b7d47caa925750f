package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"

	"filemanager/internal/storage"
)

const (
	defaultTimeout = 30 * time.Second
	uploadTimeout  = 10 * time.Minute
	// Для определения MIME-типа достаточно заголовка объекта.
	sniffLength = 3072
)

// Client реализует storage.BlobStore поверх S3-совместимого хранилища.
type Client struct {
	client  *awss3.Client
	bucket  string
	baseURL string
}

// NewClient создает новый экземпляр клиента S3 и проверяет доступность бакета.
func NewClient(conf *Config) (*Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	client := awss3.New(awss3.Options{
		BaseEndpoint:     aws.String(conf.Endpoint),
		Region:           conf.Region,
		Credentials:      creds,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	})

	s3Client := &Client{
		client:  client,
		bucket:  conf.Bucket,
		baseURL: strings.TrimRight(conf.BaseURL, "/"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := s3Client.client.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(conf.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access bucket %s: %w", conf.Bucket, err)
	}

	return s3Client, nil
}

func (c *Client) PlacementPath(nameHint string) (string, error) {
	return storage.NewPlacementPath(nameHint), nil
}

// Store загружает файл из временного расположения и удаляет источник,
// сохраняя семантику перемещения.
func (c *Client) Store(ctx context.Context, sourcePath, relativePath string) error {
	exists, err := c.Exists(ctx, relativePath)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", storage.ErrTargetExists, relativePath)
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer f.Close()

	uploadCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	_, err = c.client.PutObject(uploadCtx, &awss3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(relativePath),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob to S3: %w", err)
	}

	if err := os.Remove(sourcePath); err != nil {
		return fmt.Errorf("failed to remove source after upload: %w", err)
	}

	return nil
}

func (c *Client) Exists(ctx context.Context, relativePath string) (bool, error) {
	_, err := c.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(relativePath),
	})

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}

	return true, nil
}

// Delete идемпотентен: отсутствующий объект ошибкой не считается.
func (c *Client) Delete(ctx context.Context, relativePath string) error {
	exists, err := c.Exists(ctx, relativePath)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	_, err = c.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(relativePath),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}

	return nil
}

func (c *Client) Open(ctx context.Context, relativePath string) (io.ReadCloser, error) {
	result, err := c.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(relativePath),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotExists, relativePath)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	return result.Body, nil
}

// GuessContentType читает заголовок объекта и определяет тип по содержимому.
func (c *Client) GuessContentType(ctx context.Context, relativePath string) string {
	result, err := c.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(relativePath),
		Range:  aws.String(fmt.Sprintf("bytes=0-%d", sniffLength-1)),
	})
	if err != nil {
		return ""
	}
	defer result.Body.Close()

	mtype, err := mimetype.DetectReader(result.Body)
	if err != nil {
		return ""
	}

	return mtype.String()
}

func (c *Client) URL(relativePath string) string {
	return c.baseURL + "/" + strings.TrimLeft(relativePath, "/")
}
