package records

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pbhms/pbhms/pkg/logging"
)

// ErrAttachmentNotFound indicates no object exists at the attachment key.
var ErrAttachmentNotFound = errors.New("records: attachment not found")

// S3API is the subset of the S3 client used by AttachmentStore.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// AttachmentStore keeps record document attachments (lab PDFs, scans) in S3,
// keyed under the owning patient and record. When no bucket is configured
// the store is disabled and uploads are rejected.
type AttachmentStore struct {
	client S3API
	bucket string
	logger *logging.Logger
}

// NewAttachmentStore creates an attachment store. An empty bucket disables it.
func NewAttachmentStore(client S3API, bucket string, logger *logging.Logger) *AttachmentStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &AttachmentStore{client: client, bucket: bucket, logger: logger}
}

// Enabled reports whether attachment storage is configured.
func (s *AttachmentStore) Enabled() bool {
	return s != nil && s.bucket != "" && s.client != nil
}

func attachmentKey(patientID, recordID, filename string) string {
	return fmt.Sprintf("records/%s/%s/%s", patientID, recordID, filename)
}

// Upload stores one attachment object.
func (s *AttachmentStore) Upload(ctx context.Context, patientID, recordID, filename, contentType string, body io.Reader) error {
	if !s.Enabled() {
		return errors.New("records: attachment storage not configured")
	}
	key := attachmentKey(patientID, recordID, filename)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("records: s3 put %s: %w", key, err)
	}
	s.logger.Info("record attachment stored", "s3_key", key)
	return nil
}

// Download streams one attachment object. The caller closes the reader.
func (s *AttachmentStore) Download(ctx context.Context, patientID, recordID, filename string) (io.ReadCloser, string, error) {
	if !s.Enabled() {
		return nil, "", ErrAttachmentNotFound
	}
	key := attachmentKey(patientID, recordID, filename)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("records: s3 get %s: %w", key, err)
	}
	contentType := ""
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return out.Body, contentType, nil
}
