// Package upload stores user files in an S3 bucket and hands back a
// time-limited download link to encode as a QR code.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const (
	// KeyPrefix is the folder every upload lands in.
	KeyPrefix     = "uploads/"
	DefaultURLTTL = 7 * 24 * time.Hour
	partSize      = 10 * 1024 * 1024
)

var (
	ErrNotConfigured = errors.New("upload bucket is not configured")
	ErrEmptyName     = errors.New("file name is empty")
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// Config names the bucket and how to reach it. Endpoint and keys are only
// needed for S3-compatible servers such as MinIO.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	URLTTL    time.Duration
}

// Result describes a finished upload.
type Result struct {
	DownloadURL string    `json:"downloadURL" yaml:"download_url"`
	FileName    string    `json:"fileName" yaml:"file_name"`
	FileSize    int64     `json:"fileSize" yaml:"file_size"`
	UploadedAt  time.Time `json:"uploadedAt" yaml:"uploaded_at"`
}

// ObjectUploader is the part of manager.Uploader used here.
type ObjectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Presigner is the part of s3.PresignClient used here.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Uploader struct {
	bucket    string
	ttl       time.Duration
	uploader  ObjectUploader
	presigner Presigner
	log       *zap.Logger
	now       func() time.Time
}

// Connect builds an Uploader on a real S3 client.
func Connect(cfg Config, log *zap.Logger) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client := s3.NewFromConfig(aws.Config{Region: region}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.AccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		}
	})
	up := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize
	})
	return New(cfg, up, s3.NewPresignClient(client), log), nil
}

// New wires an Uploader from its parts.
func New(cfg Config, up ObjectUploader, presigner Presigner, log *zap.Logger) *Uploader {
	if log == nil {
		log = zap.NewNop()
	}
	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	return &Uploader{
		bucket:    cfg.Bucket,
		ttl:       ttl,
		uploader:  up,
		presigner: presigner,
		log:       log.Named("upload"),
		now:       time.Now,
	}
}

// CleanName replaces anything outside [a-zA-Z0-9.-] with an underscore.
func CleanName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// Upload stores r under uploads/<epoch-ms>_<clean name> and returns a
// presigned download URL. progress, if set, receives 0, 30, 50, 80 and 100.
func (u *Uploader) Upload(ctx context.Context, name string, r io.Reader, progress func(int)) (Result, error) {
	report := func(p int) {
		if progress != nil {
			progress(p)
		}
	}
	if name == "" {
		return Result{}, ErrEmptyName
	}
	report(0)

	clean := CleanName(name)
	key := KeyPrefix + strconv.FormatInt(u.now().UnixMilli(), 10) + "_" + clean
	body := &countingReader{r: r}
	report(30)

	report(50)
	if _, err := u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   body,
	}); err != nil {
		u.log.Error("upload error", zap.String("key", key), zap.Error(err))
		return Result{}, fmt.Errorf("failed to upload file: %w", err)
	}
	report(80)

	req, err := u.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(u.ttl))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create download link: %w", err)
	}
	report(100)

	u.log.Info("file uploaded", zap.String("key", key), zap.Int64("bytes", body.n.Load()))
	return Result{
		DownloadURL: req.URL,
		FileName:    clean,
		FileSize:    body.n.Load(),
		UploadedAt:  u.now(),
	}, nil
}

// countingReader may be read from the uploader's part goroutines.
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders a byte count with up to two decimals: "0 Bytes", "1.5 KB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := 0
	div := int64(1)
	for i < len(sizeUnits)-1 && bytes >= div*1024 {
		div *= 1024
		i++
	}
	v := math.Round(float64(bytes)/float64(div)*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}
