package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/scanview/report-store-backend/interfaces"
	"github.com/scanview/report-store-backend/pathutils"
)

// S3Provider implements a storage provider on Amazon S3 or a compatible
// service. Listing uses the native ListObjectsV2 continuation token, passed
// through as the opaque token; copy uses the native CopyObject call.
// Region, endpoint and credentials come from the standard AWS environment
// and shared config.
type S3Provider struct {
	client       *s3.S3
	bucketName   string
	activePath   string
	archivedPath string
	log          *slog.Logger
	locationURI  string
}

// NewS3Provider creates a new S3 storage provider for the given bucket.
func NewS3Provider(bucketName, prefix string, log *slog.Logger) (*S3Provider, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Provider{
		client:       s3.New(sess),
		bucketName:   bucketName,
		activePath:   pathutils.ActivePath(prefix),
		archivedPath: pathutils.ArchivedPath(prefix),
		log:          log,
		locationURI:  fmt.Sprintf("s3://%s", bucketName),
	}, nil
}

// ListFiles returns one page of entries under dirPath using the bucket's
// hierarchical delimiter. Sub-directories come from CommonPrefixes and
// precede files; the directory marker object itself is excluded.
//
// HasMore is derived from the returned token, never from IsTruncated
// alone — S3 can report truncation without a token in edge cases, and
// trusting the flag would break the pagination contract.
func (p *S3Provider) ListFiles(ctx context.Context, dirPath string, limit int, continuationToken string) (*interfaces.ListPage, error) {
	start := time.Now()
	prefix := listPrefix(dirPath)

	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(p.bucketName),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
		MaxKeys:   aws.Int64(int64(clampLimit(limit))),
	}
	if continuationToken != "" {
		input.ContinuationToken = aws.String(continuationToken)
	}

	resp, err := p.client.ListObjectsV2WithContext(ctx, input)
	if err != nil {
		p.log.Error("Failed to list objects in S3",
			slog.String("bucket", p.bucketName),
			slog.String("prefix", prefix),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	var dirs, files []interfaces.FileEntry
	for _, cp := range resp.CommonPrefixes {
		key := strings.TrimSuffix(aws.StringValue(cp.Prefix), "/")
		dirs = append(dirs, interfaces.FileEntry{
			Key:  key,
			Name: path.Base(key),
			Type: interfaces.DirectoryType,
		})
	}
	for _, obj := range resp.Contents {
		key := aws.StringValue(obj.Key)
		if strings.HasSuffix(key, "/") || !pathutils.IsJSONFile(key) {
			continue
		}
		files = append(files, interfaces.FileEntry{
			Key:          key,
			Name:         path.Base(key),
			Size:         obj.Size,
			LastModified: obj.LastModified,
			Type:         interfaces.FileType,
		})
	}

	page := &interfaces.ListPage{Entries: append(dirs, files...)}
	if token := aws.StringValue(resp.NextContinuationToken); token != "" {
		page.NextContinuationToken = token
		page.HasMore = true
	}

	p.log.Debug("Listed objects in S3",
		slog.String("bucket", p.bucketName),
		slog.String("prefix", prefix),
		slog.Int("entries", len(page.Entries)),
		slog.Bool("hasMore", page.HasMore),
		slog.Duration("duration", time.Since(start)))

	return page, nil
}

// GetFile retrieves and validates the JSON document at key.
func (p *S3Provider) GetFile(ctx context.Context, key string) (json.RawMessage, error) {
	start := time.Now()

	result, err := p.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			p.log.Debug("Object not found in S3",
				slog.String("bucket", p.bucketName),
				slog.String("key", key),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: stored bytes are not valid JSON", interfaces.ErrInvalidContent)
	}

	p.log.Debug("Fetched object from S3",
		slog.String("bucket", p.bucketName),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return json.RawMessage(data), nil
}

// CopyFile duplicates sourceKey to destKey via the native CopyObject call.
// S3 has no directory prerequisites to create.
func (p *S3Provider) CopyFile(ctx context.Context, sourceKey, destKey string) error {
	_, err := p.client.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(p.bucketName),
		CopySource: aws.String(copySource(p.bucketName, sourceKey)),
		Key:        aws.String(destKey),
	})
	if err != nil {
		if isS3NotFound(err) {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	p.log.Debug("Copied object in S3",
		slog.String("bucket", p.bucketName),
		slog.String("source", sourceKey),
		slog.String("dest", destKey))

	return nil
}

// DeleteFile removes the object at key. S3's native delete is idempotent,
// so the object is statted first to honor the uniform ErrNotFound policy.
func (p *S3Provider) DeleteFile(ctx context.Context, key string) error {
	_, err := p.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	_, err = p.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	p.log.Debug("Deleted object from S3",
		slog.String("bucket", p.bucketName),
		slog.String("key", key))

	return nil
}

// SaveFile uploads content under the active path, overwriting silently.
func (p *S3Provider) SaveFile(ctx context.Context, filename string, content []byte) (*interfaces.SaveResult, error) {
	key := p.activePath + "/" + filename

	_, err := p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	p.log.Debug("Saved object to S3",
		slog.String("bucket", p.bucketName),
		slog.String("key", key),
		slog.Int("size", len(content)))

	return &interfaces.SaveResult{Key: key, Filename: filename}, nil
}

// ActivePath returns the logical root for current files.
func (p *S3Provider) ActivePath() string {
	return p.activePath
}

// ArchivedPath returns the logical root for retired files.
func (p *S3Provider) ArchivedPath() string {
	return p.archivedPath
}

// Name returns a unique identifier for this storage provider.
func (p *S3Provider) Name() string {
	return fmt.Sprintf("s3-%s", p.bucketName)
}

// LocationURI returns the descriptor identifying this provider.
func (p *S3Provider) LocationURI() string {
	return p.locationURI
}

// listPrefix turns a directory-like path into an object key prefix.
func listPrefix(dirPath string) string {
	if dirPath == "" {
		return ""
	}
	return strings.TrimSuffix(dirPath, "/") + "/"
}

// copySource builds the CopySource header value. The service expects it
// URL-encoded and keys may contain spaces, so each segment is escaped.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

func isS3NotFound(err error) bool {
	return strings.Contains(err.Error(), "NoSuchKey") ||
		strings.Contains(err.Error(), "NotFound") ||
		strings.Contains(err.Error(), "404")
}
