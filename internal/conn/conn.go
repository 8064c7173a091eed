package conn

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidAddress = errors.New("conn: invalid address")
	ErrRemoteClosed   = errors.New("conn: remote closed connection")
	ErrFrameTimeout   = errors.New("conn: frame timeout")
	ErrConnClosed     = errors.New("conn: connection closed")
	ErrEmptyDelimiter = errors.New("conn: empty delimiter")
)

// readChunkSize bounds a single transport read.
const readChunkSize = 4096

// Conn is a framed adapter over a stream socket. It is exclusively owned
// by one goroutine for its entire lifetime; none of its methods are safe
// for concurrent use.
type Conn struct {
	raw  net.Conn
	addr string
	cfg  Config

	// residual holds look-ahead bytes already read from the transport
	// that belong to the next frame.
	residual []byte

	closeOnce sync.Once
	closed    atomic.Bool
}

// Dial establishes a framed connection to a producer at host:port.
// A malformed or unresolvable address fails with ErrInvalidAddress;
// refused or timed-out dials return the transport error unclassified so
// callers can treat them as transient.
func Dial(address string, cfg Config) (*Conn, error) {
	cfg = cfg.WithDefaults()

	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	if host == "" {
		return nil, fmt.Errorf("%w: %q: missing host", ErrInvalidAddress, address)
	}
	if _, err := net.LookupPort("tcp", port); err != nil {
		return nil, fmt.Errorf("%w: %q: bad port %q", ErrInvalidAddress, address, port)
	}

	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	raw, err := dialer.Dial("tcp", address)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, fmt.Errorf("%w: %q: unknown host", ErrInvalidAddress, address)
		}
		return nil, fmt.Errorf("conn: dial %s: %w", address, err)
	}

	if cfg.TLS.Enabled {
		raw, err = wrapTLS(raw, host, cfg)
		if err != nil {
			return nil, err
		}
	}

	return &Conn{raw: raw, addr: address, cfg: cfg}, nil
}

// Addr returns the producer address the connection was established with.
func (c *Conn) Addr() string {
	return c.addr
}

// Receive blocks until one complete frame terminated by delim is
// available and returns it with the delimiter stripped.
//
// Two independent timers bound the wait: IdleTimeout applies while no
// byte of the frame has arrived yet, and MaxFrameDelay bounds the total
// time to complete the frame once its first byte exists. Either timer
// expiring surfaces as ErrFrameTimeout. A clean remote shutdown surfaces
// as ErrRemoteClosed, distinct from a timeout.
func (c *Conn) Receive(delim []byte) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrConnClosed
	}
	if len(delim) == 0 {
		return nil, ErrEmptyDelimiter
	}

	data := c.residual
	var frameDeadline time.Time
	if len(data) > 0 {
		// Look-ahead bytes carried over from the previous call count as
		// the first chunk of this frame.
		frameDeadline = time.Now().Add(c.cfg.MaxFrameDelay)
	}

	buf := make([]byte, readChunkSize)
	for {
		// The residual may already hold a complete frame, so the
		// delimiter scan must run before any blocking read. A delimiter
		// split across two chunks is only visible here, after the
		// chunks have been concatenated.
		if i := bytes.Index(data, delim); i >= 0 {
			frame := data[:i:i]
			c.residual = append([]byte(nil), data[i+len(delim):]...)
			return frame, nil
		}

		deadline := frameDeadline
		if deadline.IsZero() {
			deadline = time.Now().Add(c.cfg.IdleTimeout)
		}
		if err := c.raw.SetReadDeadline(deadline); err != nil {
			return nil, c.readFailure(data, err)
		}

		n, err := c.raw.Read(buf)
		if n > 0 {
			if frameDeadline.IsZero() {
				frameDeadline = time.Now().Add(c.cfg.MaxFrameDelay)
			}
			data = append(data, buf[:n]...)
			// Check the enlarged buffer for a frame before surfacing
			// any error that rode along with the final chunk.
			continue
		}
		if err != nil {
			return nil, c.readFailure(data, err)
		}
	}
}

// Send writes the full payload, bounded by WriteTimeout.
func (c *Conn) Send(p []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	if c.cfg.WriteTimeout > 0 {
		if err := c.raw.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
			return fmt.Errorf("conn: send: %w", err)
		}
	}
	if _, err := c.raw.Write(p); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return ErrConnClosed
		}
		return fmt.Errorf("conn: send: %w", err)
	}
	return nil
}

// Close releases the transport. The first call closes the socket and
// returns its result; every later call is a no-op returning nil.
// Receive and Send fail with ErrConnClosed once Close has been called.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = c.raw.Close()
	})
	return err
}

// readFailure preserves buffered bytes and maps a transport read error
// onto the connection error taxonomy.
func (c *Conn) readFailure(data []byte, err error) error {
	c.residual = data
	switch {
	case errors.Is(err, io.EOF):
		return ErrRemoteClosed
	case errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%w: %d bytes buffered", ErrFrameTimeout, len(data))
	case errors.Is(err, net.ErrClosed):
		return ErrConnClosed
	default:
		return fmt.Errorf("conn: receive: %w", err)
	}
}
