package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/pkg/metrics"
)

type fakeDeleter struct {
	inputs []*s3.DeleteObjectInput
	err    error
}

func (f *fakeDeleter) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.inputs = append(f.inputs, in)
	return &s3.DeleteObjectOutput{}, f.err
}

func TestObjectKey(t *testing.T) {
	key, err := objectKey("https://cdn.example.com/avatars/a.png", "https://cdn.example.com")
	require.NoError(t, err)
	assert.Equal(t, "avatars/a.png", key)

	key, err = objectKey("https://bucket.s3.amazonaws.com/materials/x.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, "materials/x.pdf", key)

	_, err = objectKey("https://cdn.example.com/", "https://cdn.example.com")
	assert.Error(t, err)
}

func TestS3Releaser_DeletesKey(t *testing.T) {
	client := &fakeDeleter{}
	r := newS3Releaser(client, "practice", "https://cdn.example.com")

	require.NoError(t, r.Release(context.Background(), "https://cdn.example.com/avatars/a.png"))
	require.Len(t, client.inputs, 1)
	assert.Equal(t, "practice", *client.inputs[0].Bucket)
	assert.Equal(t, "avatars/a.png", *client.inputs[0].Key)
}

func TestS3Releaser_WrapsError(t *testing.T) {
	client := &fakeDeleter{err: errors.New("access denied")}
	r := newS3Releaser(client, "practice", "")
	err := r.Release(context.Background(), "https://bucket.s3.amazonaws.com/a.png")
	assert.ErrorContains(t, err, "access denied")
}

func TestLocalReleaser(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "avatars"), 0o755))
	path := filepath.Join(root, "avatars", "a.png")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	r := NewLocalReleaser(root, "http://localhost:8080/files")
	require.NoError(t, r.Release(context.Background(), "http://localhost:8080/files/avatars/a.png"))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Releasing again is a no-op.
	require.NoError(t, r.Release(context.Background(), "http://localhost:8080/files/avatars/a.png"))

	assert.Error(t, r.Release(context.Background(), "http://localhost:8080/files/../../etc/passwd"))
}

func TestWithMetricsCountsOutcomes(t *testing.T) {
	m := metrics.New("test")
	r := WithMetrics(newS3Releaser(&fakeDeleter{}, "b", ""), m)
	require.NoError(t, r.Release(context.Background(), "https://h/a"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AssetReleases.WithLabelValues("success")))
}
