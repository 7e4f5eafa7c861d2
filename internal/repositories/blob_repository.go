package repositories

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"nyxCloud/internal/config"
)

// BlobRepository stores account attachments in an S3-compatible bucket.
// Every object of an account lives under the key prefix "{uid}/".
type BlobRepository struct {
	S3     *s3.S3
	Bucket string
}

func NewBlobRepository(cfg config.StorageConfig) *BlobRepository {
	sess := session.Must(session.NewSession(&aws.Config{
		Region:      aws.String(cfg.Region),
		Endpoint:    aws.String(cfg.Endpoint),
		Credentials: credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
	}))
	return &BlobRepository{S3: s3.New(sess), Bucket: cfg.Bucket}
}

// Usage sums the sizes of all objects under the account's prefix.
func (r *BlobRepository) Usage(ctx context.Context, uid string) (int64, error) {
	var total int64
	err := r.S3.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.Bucket),
		Prefix: aws.String(uid + "/"),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			total += aws.Int64Value(obj.Size)
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("list objects for %s: %w", uid, err)
	}
	return total, nil
}

// DeletePrefix removes every object under the account's prefix, one listed
// page per delete call.
func (r *BlobRepository) DeletePrefix(ctx context.Context, uid string) error {
	var delErr error
	err := r.S3.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.Bucket),
		Prefix: aws.String(uid + "/"),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		if len(page.Contents) == 0 {
			return true
		}
		objects := make([]*s3.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, &s3.ObjectIdentifier{Key: obj.Key})
		}
		_, delErr = r.S3.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(r.Bucket),
			Delete: &s3.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		return delErr == nil
	})
	if delErr != nil {
		return fmt.Errorf("delete objects for %s: %w", uid, delErr)
	}
	if err != nil {
		return fmt.Errorf("list objects for %s: %w", uid, err)
	}
	return nil
}
