// Package storage archives generated documents in an S3-compatible bucket
// (Cloudflare R2 in production).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"eventos-backend/internal/config"
	"eventos-backend/internal/timeutil"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type Archive struct {
	client *s3.Client
	bucket string
	logger *log.Logger
}

// NewArchive builds the bucket client; callers check cfg.StorageEnabled first
func NewArchive(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Archive, error) {
	if logger == nil {
		logger = log.Default()
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Storage.AccessKey,
			cfg.Storage.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Storage.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to configure storage client: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Archive{client: client, bucket: cfg.Storage.Bucket, logger: logger}, nil
}

// Put uploads data under key
func (a *Archive) Put(ctx context.Context, key, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	a.logger.Printf("[Archivo] Subido %s (%d bytes)", key, len(data))
	return nil
}

// QuoteKey names an archived quote so every generation is kept
func QuoteKey(eventID int) string {
	return fmt.Sprintf("cotizaciones/%d/%s_%s.pdf", eventID, timeutil.Now().Format("20060102_150405"), uuid.NewString())
}

// ReceiptKey names an archived payment receipt
func ReceiptKey(eventID, paymentID int) string {
	return fmt.Sprintf("recibos/%d/pago_%d_%s.pdf", eventID, paymentID, uuid.NewString())
}
