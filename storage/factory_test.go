package storage

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/scanview/report-store-backend/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProviderType(t *testing.T) {
	tests := []struct {
		descriptor string
		want       string
	}{
		{"s3://reports-bucket", "Amazon S3"},
		{"minio://localhost:9000/reports", "MinIO"},
		{"ipfs://localhost:5001", "IPFS"},
		{"vault://vault.example.com:8200/secret", "HashiCorp Vault"},
		{"file:///var/lib/reports", "Local Filesystem"},
		{"/var/lib/reports", "Local Filesystem"},
		{"./reports", "Local Filesystem"},
	}

	for _, tt := range tests {
		t.Run(tt.descriptor, func(t *testing.T) {
			assert.Equal(t, tt.want, ProviderType(tt.descriptor))
		})
	}
}

func TestCreateStorageProvider(t *testing.T) {
	factory := NewProviderFactory(testLogger())

	t.Run("empty descriptor is fatal", func(t *testing.T) {
		_, err := factory.CreateStorageProvider("", "reports")
		require.Error(t, err)
		assert.True(t, errors.Is(err, interfaces.ErrInvalidLocation))
	})

	t.Run("bare path falls back to local filesystem", func(t *testing.T) {
		provider, err := factory.CreateStorageProvider(t.TempDir(), "reports")
		require.NoError(t, err)
		_, ok := provider.(*FileProvider)
		assert.True(t, ok)
		assert.Equal(t, "reports/active", provider.ActivePath())
		assert.Equal(t, "reports/archived", provider.ArchivedPath())
	})

	t.Run("file scheme strips its prefix", func(t *testing.T) {
		dir := t.TempDir()
		provider, err := factory.CreateStorageProvider("file://"+dir, "")
		require.NoError(t, err)
		assert.Equal(t, "file://"+dir, provider.LocationURI())
	})

	t.Run("s3 scheme", func(t *testing.T) {
		provider, err := factory.CreateStorageProvider("s3://reports-bucket", "team")
		require.NoError(t, err)
		assert.Equal(t, "s3-reports-bucket", provider.Name())
		assert.Equal(t, "team/active", provider.ActivePath())
	})

	t.Run("s3 scheme without bucket", func(t *testing.T) {
		_, err := factory.CreateStorageProvider("s3://", "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, interfaces.ErrInvalidLocation))
	})

	t.Run("minio scheme needs endpoint and bucket", func(t *testing.T) {
		provider, err := factory.CreateStorageProvider("minio://localhost:9000/reports", "")
		require.NoError(t, err)
		assert.Equal(t, "minio-reports", provider.Name())

		_, err = factory.CreateStorageProvider("minio://localhost:9000", "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, interfaces.ErrInvalidLocation))
	})

	t.Run("ipfs scheme defaults the API port", func(t *testing.T) {
		provider, err := factory.CreateStorageProvider("ipfs://ipfs.example.com", "")
		require.NoError(t, err)
		assert.Equal(t, "ipfs-ipfs.example.com:5001", provider.Name())
	})

	t.Run("vault scheme defaults the mount", func(t *testing.T) {
		provider, err := factory.CreateStorageProvider("vault://vault.example.com:8200", "")
		require.NoError(t, err)
		assert.Equal(t, "vault-secret", provider.Name())
	})
}
