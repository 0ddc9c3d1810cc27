package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3Upload tracks state for one multipart upload session.
type s3Upload struct {
	store          *S3Store
	key            string
	uploadID       string
	nextPart       int32
	completedParts []types.CompletedPart
	done           bool
}

// BeginMultipartUpload initiates a multipart upload for the given key.
func (s *S3Store) BeginMultipartUpload(ctx context.Context, key, contentType string) (Upload, error) {
	result, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart upload: %w", err)
	}

	return &s3Upload{
		store:          s,
		key:            key,
		uploadID:       aws.ToString(result.UploadId),
		nextPart:       1,
		completedParts: make([]types.CompletedPart, 0),
	}, nil
}

// UploadPart uploads the next part. Part numbers are assigned in call order
// starting at 1, matching S3's 1-10000 range.
func (u *s3Upload) UploadPart(ctx context.Context, data []byte) error {
	partNumber := u.nextPart

	result, err := u.store.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(u.store.bucket),
		Key:        aws.String(u.key),
		UploadId:   aws.String(u.uploadID),
		PartNumber: aws.Int32(partNumber),
		Body:       bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload part %d: %w", partNumber, err)
	}

	u.nextPart++
	u.completedParts = append(u.completedParts, types.CompletedPart{
		ETag:       result.ETag,
		PartNumber: aws.Int32(partNumber),
	})
	return nil
}

// Complete finalizes the upload, assembling the parts in order.
func (u *s3Upload) Complete(ctx context.Context) error {
	if u.done {
		return nil
	}

	parts := make([]types.CompletedPart, len(u.completedParts))
	copy(parts, u.completedParts)
	sort.Slice(parts, func(i, j int) bool {
		return *parts[i].PartNumber < *parts[j].PartNumber
	})

	_, err := u.store.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(u.store.bucket),
		Key:      aws.String(u.key),
		UploadId: aws.String(u.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: parts,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}

	u.done = true
	return nil
}

// Abort cancels the upload. NoSuchUpload is ignored so Abort stays idempotent
// and safe to call after Complete has already won.
func (u *s3Upload) Abort(ctx context.Context) error {
	if u.done {
		return nil
	}

	_, err := u.store.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(u.store.bucket),
		Key:      aws.String(u.key),
		UploadId: aws.String(u.uploadID),
	})
	if err != nil {
		var noSuchUpload *types.NoSuchUpload
		if !errors.As(err, &noSuchUpload) {
			return fmt.Errorf("failed to abort multipart upload: %w", err)
		}
	}

	u.done = true
	return nil
}
