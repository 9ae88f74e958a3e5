package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	bucket, key, err := ParseAddress("s3://events/registry/records.json")
	require.NoError(t, err)
	assert.Equal(t, "events", bucket)
	assert.Equal(t, "registry/records.json", key)

	for _, bad := range []string{"events/records.json", "s3://", "s3://events", "s3://events/", "s3:///key"} {
		_, _, err := ParseAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidAddress, bad)
	}
	assert.True(t, IsAddress("s3://a/b"))
	assert.False(t, IsAddress("https://a/b"))
}

func TestNewRequiresRegion(t *testing.T) {
	_, err := New(context.Background(), Config{Bucket: "b"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	client, err := New(context.Background(), Config{
		Region:         "us-east-1",
		AccessKeyID:    "test",
		SecretKey:      "test",
		Endpoint:       "http://localhost:9000",
		ForcePathStyle: true,
	})
	require.NoError(t, err)
	assert.NotNil(t, client)
}
