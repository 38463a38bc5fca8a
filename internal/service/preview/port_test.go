package preview

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

// reservePort returns a free TCP port on the loopback interface.
func reservePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", DefaultHost+":0")
	require.NoError(t, err)

	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()

	return port
}
