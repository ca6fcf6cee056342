package launcher

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatePort_FallsBackWhenRequestedIsBusy(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	busyPort := ln.Addr().(*net.TCPAddr).Port

	port, err := allocatePort(busyPort)
	require.NoError(t, err)
	assert.NotEqual(t, busyPort, port)
	assert.GreaterOrEqual(t, port, busyPort+1)
	assert.LessOrEqual(t, port, busyPort+maxPortProbe)
}

func TestAllocatePort_ReturnsRequestedWhenFree(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	freePort := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	port, err := allocatePort(freePort)
	require.NoError(t, err)
	assert.Equal(t, freePort, port)
}
