package comm

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsBoard(t *testing.T) {
	require.True(t, IsBoard("c0de", "CAFE"))
	require.True(t, IsBoard("C0DE", "cafe"))
	require.False(t, IsBoard("C0DE", "BEEF"))
	require.False(t, IsBoard("", ""))
}

func TestOpenTCP(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := l.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	rw, err := Open(TCPPrefix+l.Addr().String(), 0)
	require.NoError(t, err)
	defer rw.Close()
	conn := <-accepted
	defer conn.Close()

	frame := AppendHostFrame(nil, Ping{ID: 7})
	_, err = rw.Write(frame)
	require.NoError(t, err)
	buf := make([]byte, len(frame))
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0x05, 0x02, 0x07, 0xbe, 0xed, 0x00}, buf)
}
