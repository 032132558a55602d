package ipc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ultrasearch/ultrasearch/pkg/errs"
)

// chanListener adapts a channel of pre-established net.Conn pairs (from
// net.Pipe) to the Listener interface, for tests that don't touch a real
// named pipe.
type chanListener struct {
	conns  chan net.Conn
	closed chan struct{}
}

func newChanListener() *chanListener {
	return &chanListener{conns: make(chan net.Conn, 4), closed: make(chan struct{})}
}

func (l *chanListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.closed:
		return nil, errors.New("listener closed")
	}
}

func (l *chanListener) Close() error {
	close(l.closed)
	return nil
}

func (l *chanListener) Addr() net.Addr { return fakeAddr{} }

type fakeAddr struct{}

func (fakeAddr) Network() string { return "pipe" }
func (fakeAddr) String() string  { return "test-pipe" }

type fakeHandler struct{}

func (fakeHandler) Search(ctx context.Context, req *Request) (*Response, error) {
	return &Response{Hits: []SearchHit{{Name: "found.txt", Path: `C:\found.txt`}}}, nil
}

func (fakeHandler) Status(ctx context.Context) (*StatusInfo, error) {
	return &StatusInfo{Version: "test"}, nil
}

func (fakeHandler) ConfigGet(ctx context.Context, key string) (string, error) {
	return "value-for-" + key, nil
}

func (fakeHandler) ConfigSet(ctx context.Context, key, value string) error {
	return nil
}

func TestServerClientHelloSearchRoundTrip(t *testing.T) {
	serverConn, clientConn := net.Pipe()

	listener := newChanListener()
	listener.conns <- serverConn

	server := NewServer(listener, fakeHandler{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Serve(ctx)

	client := &Client{conn: clientConn}
	resp, err := client.roundTrip(&Request{Variant: VariantHello, ID: "h1", ProtocolVersion: ProtocolVersion})
	require.NoError(t, err)
	require.False(t, resp.IsError())
	require.Equal(t, ProtocolVersion, resp.ProtocolVersion)

	searchResp, err := client.Search("report", 10, 0, "auto", 2000)
	require.NoError(t, err)
	require.False(t, searchResp.IsError())
	require.Len(t, searchResp.Hits, 1)
	require.Equal(t, "found.txt", searchResp.Hits[0].Name)

	client.Close()
}

func TestServerRejectsProtocolVersionMismatch(t *testing.T) {
	serverConn, clientConn := net.Pipe()

	listener := newChanListener()
	listener.conns <- serverConn

	server := NewServer(listener, fakeHandler{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Serve(ctx)

	client := &Client{conn: clientConn}
	resp, err := client.roundTrip(&Request{Variant: VariantHello, ID: "h1", ProtocolVersion: ProtocolVersion + 1})
	require.NoError(t, err)
	require.True(t, resp.IsError())
	require.Equal(t, string(errs.ProtocolVersion), resp.ErrKind)

	client.Close()
}

func TestClientDialRejectsUnsupportedPlatform(t *testing.T) {
	_, err := Dial(DefaultPipeName)
	require.Error(t, err)
}

func TestServeStopsOnContextCancel(t *testing.T) {
	listener := newChanListener()
	server := NewServer(listener, fakeHandler{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}
