//go:build windows

package ipc

import (
	"net"

	winio "github.com/Microsoft/go-winio"
)

// DefaultPipeName is the well-known pipe path UltraSearch listens on.
const DefaultPipeName = `\\.\pipe\ultrasearch`

// ListenPipe opens a Windows named pipe listener at name (spec §4.7).
func ListenPipe(name string) (Listener, error) {
	return winio.ListenPipe(name, &winio.PipeConfig{
		SecurityDescriptor: "D:P(A;;GA;;;AU)", // authenticated users, full access; no network exposure
		MessageMode:        false,
	})
}

// DialPipe connects to a Windows named pipe server.
func DialPipe(name string) (net.Conn, error) {
	return winio.DialPipe(name, nil)
}
