package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

const s3KeyPrefix = "assets/"

// S3Store uploads images to a public-read bucket and records absolute URLs.
type S3Store struct {
	bucket   string
	uploader s3manageriface.UploaderAPI
	svc      s3iface.S3API
}

func NewS3Store(bucket, region string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, err
	}
	return &S3Store{
		bucket:   bucket,
		uploader: s3manager.NewUploader(sess),
		svc:      s3.New(sess),
	}, nil
}

func (s *S3Store) Backend() string { return "s3" }

func (s *S3Store) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		ACL:         aws.String("public-read"),
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s3KeyPrefix + name),
		Body:        reader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return out.Location, nil
}

func (s *S3Store) Remove(ctx context.Context, ref string) error {
	key, ok := s.keyFromURL(ref)
	if !ok {
		return nil
	}
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// keyFromURL recovers the object key from a URL this store produced.
func (s *S3Store) keyFromURL(ref string) (string, bool) {
	i := strings.Index(ref, "/"+s3KeyPrefix)
	if !IsAbsolute(ref) || i < 0 || !strings.Contains(ref[:i], s.bucket) {
		return "", false
	}
	return ref[i+1:], true
}
