package env

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNodeMeta(t *testing.T) {
	conf := &Config{ID: "rover-1", Description: "front scout"}
	meta := conf.NodeMeta("10.0.0.7")
	require.Equal(t, "rover-1", meta.ID)
	require.Equal(t, "10.0.0.7", meta.Addr)
	require.Equal(t, "front scout", meta.Description)

	conf.ID = ""
	require.NotEmpty(t, conf.NodeID())
}

func TestLocalIPv4(t *testing.T) {
	addr, err := LocalIPv4("127.0.0.1:5080")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", addr)

	_, err = LocalIPv4("not an address")
	require.Error(t, err)
}
