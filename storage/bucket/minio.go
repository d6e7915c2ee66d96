package bucket

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/emisoft/buzon/core"
	"github.com/emisoft/buzon/core/ticket"
)

var nowFunc = time.Now // mockable

// evidenceStore keeps uploaded evidence photos in an S3-compatible bucket.
// Keys are "<baseFolder>/<year>/<month>/<uuid><ext>" so objects never collide
// and never leak the original filename.
type evidenceStore struct {
	client     *minio.Client
	endpoint   string
	bucketName string
	baseFolder string
	useSSL     bool
}

var _ ticket.EvidenceStore = (*evidenceStore)(nil) // interface compliance check

func NewEvidenceStore(ctx context.Context, conf *core.Config) (ticket.EvidenceStore, error) {
	client, err := minio.New(conf.Bucket.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.Bucket.AccessKey, conf.Bucket.SecretKey, ""),
		Secure: conf.Bucket.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connecting to bucket")
	}

	exists, err := client.BucketExists(ctx, conf.Bucket.Name)
	if err != nil {
		return nil, errors.Wrap(err, "checking bucket")
	}
	if !exists {
		if err = client.MakeBucket(ctx, conf.Bucket.Name, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, "creating bucket")
		}
	}

	return &evidenceStore{
		client:     client,
		endpoint:   conf.Bucket.Endpoint,
		bucketName: conf.Bucket.Name,
		baseFolder: strings.Trim(conf.Bucket.BaseFolder, "/"),
		useSSL:     conf.Bucket.UseSSL,
	}, nil
}

func (s *evidenceStore) UploadEvidence(ctx context.Context, content []byte, filename string) (string, error) {
	id := uuid.New()
	key := fmt.Sprintf("%s/%s/%s%s",
		s.baseFolder, nowFunc().UTC().Format("2006/01"), id, strings.ToLower(filepath.Ext(filename)))

	contentType := http.DetectContentType(content)
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", errors.Wrap(err, "uploading evidence")
	}
	return key, nil
}

func (s *evidenceStore) EvidenceURL(key string) string {
	if key == "" {
		return ""
	}
	scheme := "https"
	if !s.useSSL {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucketName, key)
}
