package sink

import (
	"context"
	"fmt"
	"path"

	"github.com/aleksaelezovic/plywrite/internal/config"
	"github.com/aleksaelezovic/plywrite/pkg/ply"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const contentType = "application/x-ply"

// MinioSink uploads to an S3-compatible bucket as <prefix>/<name>.ply
type MinioSink struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinioSink(client *minio.Client, bucket, prefix string) *MinioSink {
	return &MinioSink{client: client, bucket: bucket, prefix: prefix}
}

// DialMinio builds a client from the [minio] config section
func DialMinio(cfg config.Minio) (*MinioSink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return NewMinioSink(client, cfg.Bucket, cfg.Prefix), nil
}

func (m *MinioSink) Key(name string) string {
	return path.Join(m.prefix, name+".ply")
}

// Write streams s without buffering the file; the size is unknown upfront
func (m *MinioSink) Write(ctx context.Context, name string, s *ply.Stream) (int64, error) {
	info, err := m.client.PutObject(ctx, m.bucket, m.Key(name), s, -1, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"Ply-Format":   s.Format().String(),
			"Ply-Vertices": fmt.Sprint(s.VertexCount()),
			"Ply-Faces":    fmt.Sprint(s.FaceCount()),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload %s: %w", m.Key(name), err)
	}
	return info.Size, nil
}
