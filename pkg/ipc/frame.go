// Package ipc implements the length-prefixed request/response protocol
// the service exposes over a local named pipe (spec §4.7): one request,
// one correlated response, framed as `[u32 little-endian length][payload]`.
package ipc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ultrasearch/ultrasearch/pkg/errs"
)

// maxFrameBytes bounds a single frame so a corrupt or hostile peer
// cannot force an unbounded allocation.
const maxFrameBytes = 64 * 1024 * 1024

// WriteFrame writes length-prefixed payload to w.
func WriteFrame(w io.Writer, payload []byte) error {
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return errs.Wrap(errs.IoTransient, "write frame header", err)
	}
	if _, err := w.Write(payload); err != nil {
		return errs.Wrap(errs.IoTransient, "write frame payload", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed payload from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errs.Wrap(errs.IoTransient, "read frame header", err)
	}

	length := binary.LittleEndian.Uint32(header[:])
	if length > maxFrameBytes {
		return nil, errs.New(errs.IoFatal, fmt.Sprintf("frame length %d exceeds maximum %d", length, maxFrameBytes))
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errs.Wrap(errs.IoTransient, "read frame payload", err)
	}
	return payload, nil
}
