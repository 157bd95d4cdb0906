package torproxy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisabledReturnsDefaultClient(t *testing.T) {
	client, err := NewHTTPClient(Config{})
	require.NoError(t, err)
	require.Equal(t, http.DefaultClient, client)
}

func TestEnabledBuildsSocksTransport(t *testing.T) {
	client, err := NewHTTPClient(Config{SocksAddress: "127.0.0.1", SocksPort: 9050})
	require.NoError(t, err)
	require.NotNil(t, client.Transport)
	require.NotEqual(t, http.DefaultClient, client)
}

func TestConfigEnabled(t *testing.T) {
	require.False(t, Config{}.Enabled())
	require.True(t, Config{SocksAddress: "127.0.0.1", SocksPort: 9050}.Enabled())
}
