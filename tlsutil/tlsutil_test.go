package tlsutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureCertGeneratesAndReloads(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "tls.cert")
	keyPath := filepath.Join(dir, "tls.key")

	first, err := EnsureCert(certPath, keyPath, "127.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, first.Certificate)

	second, err := EnsureCert(certPath, keyPath, "127.0.0.1")
	require.NoError(t, err)
	require.Equal(t, first.Certificate, second.Certificate)
}
