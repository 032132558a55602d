package ipc

import (
	"encoding/json"
	"net"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ultrasearch/ultrasearch/pkg/errs"
)

// Client issues requests over an established connection, one request at
// a time, correlating by the generated request id (spec §4.7: "one
// request ↔ one response, correlated by an included request id").
type Client struct {
	conn net.Conn
	seq  atomic.Uint64
}

// Dial connects to pipeName and performs the Hello handshake.
func Dial(pipeName string) (*Client, error) {
	conn, err := DialPipe(pipeName)
	if err != nil {
		return nil, errs.Wrap(errs.IoTransient, "dial ipc pipe", err)
	}

	c := &Client{conn: conn}
	resp, err := c.roundTrip(&Request{Variant: VariantHello, ID: newRequestID(), ProtocolVersion: ProtocolVersion})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if resp.IsError() {
		conn.Close()
		return nil, errs.New(errs.Kind(resp.ErrKind), resp.ErrMsg)
	}
	if resp.ProtocolVersion != ProtocolVersion {
		conn.Close()
		return nil, errs.New(errs.ProtocolVersion, "server protocol version mismatch")
	}
	return c, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Search issues a Search request.
func (c *Client) Search(query string, limit, offset int, mode string, deadlineMs int) (*Response, error) {
	return c.roundTrip(&Request{
		Variant:    VariantSearch,
		ID:         newRequestID(),
		Query:      query,
		Limit:      limit,
		Offset:     offset,
		Mode:       mode,
		DeadlineMs: deadlineMs,
	})
}

// Status issues a Status request.
func (c *Client) Status() (*Response, error) {
	return c.roundTrip(&Request{Variant: VariantStatus, ID: newRequestID()})
}

// ConfigGet issues a ConfigGet request.
func (c *Client) ConfigGet(key string) (*Response, error) {
	return c.roundTrip(&Request{Variant: VariantConfigGet, ID: newRequestID(), Key: key})
}

// ConfigSet issues a ConfigSet request.
func (c *Client) ConfigSet(key, value string) (*Response, error) {
	return c.roundTrip(&Request{Variant: VariantConfigSet, ID: newRequestID(), Key: key, Value: value})
}

func (c *Client) roundTrip(req *Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errs.Wrap(errs.ConfigInvalid, "marshal request", err)
	}
	if err := WriteFrame(c.conn, payload); err != nil {
		return nil, err
	}

	respPayload, err := ReadFrame(c.conn)
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(respPayload, &resp); err != nil {
		return nil, errs.Wrap(errs.ConfigInvalid, "unmarshal response", err)
	}
	return &resp, nil
}

func newRequestID() string {
	return uuid.NewString()
}
