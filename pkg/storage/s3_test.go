package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogoKey(t *testing.T) {
	orgID := uuid.New()
	key := LogoKey(orgID, ".png")

	assert.True(t, strings.HasPrefix(key, "logos/"+orgID.String()+"/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.NotEqual(t, key, LogoKey(orgID, ".png"))
}

func TestPresignLogoUpload(t *testing.T) {
	ctx := context.Background()
	s, err := NewS3(ctx, S3Config{
		Region:          "eu-west-1",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		LogosBucket:     "logos-bucket",
	}, nil)
	require.NoError(t, err)

	_, err = s.PresignLogoUpload(ctx, uuid.New(), "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	up, err := s.PresignLogoUpload(ctx, uuid.New(), "image/PNG")
	require.NoError(t, err)
	assert.Contains(t, up.UploadURL, "X-Amz-Signature=")
	assert.Contains(t, up.UploadURL, up.Key)
	assert.Equal(t, "https://logos-bucket.s3.eu-west-1.amazonaws.com/"+up.Key, up.PublicURL)
}
