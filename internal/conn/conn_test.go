package conn

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/pico-collectors/datacollect/internal/testutil/testlog"
)

var crlf = []byte("\r\n")

func shortConfig() Config {
	return Config{
		ConnectTimeout: time.Second,
		IdleTimeout:    2 * time.Second,
		MaxFrameDelay:  2 * time.Second,
		WriteTimeout:   time.Second,
	}
}

// pipeConn builds a framed connection over an in-memory pipe so tests
// control chunk boundaries exactly: every remote Write arrives as one
// read chunk.
func pipeConn(t *testing.T, cfg Config) (*Conn, net.Conn) {
	t.Helper()
	client, remote := net.Pipe()
	c := &Conn{raw: client, addr: "pipe", cfg: cfg.WithDefaults()}
	t.Cleanup(func() {
		_ = c.Close()
		_ = remote.Close()
	})
	return c, remote
}

func startProducer(t *testing.T, serve func(c net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		serve(c)
	}()
	return ln.Addr().String()
}

func TestReceiveFramesInOrderAcrossChunks(t *testing.T) {
	testlog.Start(t)
	addr := startProducer(t, func(c net.Conn) {
		for _, chunk := range []string{"alp", "ha\r", "\nbeta\r\nga", "mma\r\n"} {
			if _, err := c.Write([]byte(chunk)); err != nil {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	})

	c, err := Dial(addr, shortConfig())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	for _, want := range []string{"alpha", "beta", "gamma"} {
		frame, err := c.Receive(crlf)
		if err != nil {
			t.Fatalf("receive %q: %v", want, err)
		}
		if string(frame) != want {
			t.Fatalf("frame mismatch: got=%q want=%q", frame, want)
		}
	}

	if _, err := c.Receive(crlf); !errors.Is(err, ErrRemoteClosed) {
		t.Fatalf("expected ErrRemoteClosed after producer exit, got %v", err)
	}
}

func TestReceiveResidualCarryOver(t *testing.T) {
	testlog.Start(t)
	c, remote := pipeConn(t, shortConfig())
	go func() {
		_, _ = remote.Write([]byte("one\r\ntwo\r\n"))
		_ = remote.Close()
	}()

	first, err := c.Receive(crlf)
	if err != nil {
		t.Fatalf("first receive: %v", err)
	}
	if string(first) != "one" {
		t.Fatalf("first frame: %q", first)
	}

	// The second frame is already complete in the residual buffer. The
	// remote end is closed, so any transport read here would surface
	// ErrRemoteClosed instead of the frame.
	second, err := c.Receive(crlf)
	if err != nil {
		t.Fatalf("second receive: %v", err)
	}
	if string(second) != "two" {
		t.Fatalf("second frame: %q", second)
	}

	if _, err := c.Receive(crlf); !errors.Is(err, ErrRemoteClosed) {
		t.Fatalf("expected ErrRemoteClosed, got %v", err)
	}
}

func TestReceiveDelimiterSplitAcrossChunks(t *testing.T) {
	testlog.Start(t)
	c, remote := pipeConn(t, shortConfig())
	go func() {
		_, _ = remote.Write([]byte("alpha\r"))
		_, _ = remote.Write([]byte("\nbeta\r\n"))
		_ = remote.Close()
	}()

	first, err := c.Receive(crlf)
	if err != nil {
		t.Fatalf("first receive: %v", err)
	}
	if string(first) != "alpha" {
		t.Fatalf("first frame: %q", first)
	}
	second, err := c.Receive(crlf)
	if err != nil {
		t.Fatalf("second receive: %v", err)
	}
	if string(second) != "beta" {
		t.Fatalf("second frame: %q", second)
	}
}

func TestReceiveIdleTimeout(t *testing.T) {
	testlog.Start(t)
	cfg := shortConfig()
	cfg.IdleTimeout = 80 * time.Millisecond
	cfg.MaxFrameDelay = 5 * time.Second
	c, _ := pipeConn(t, cfg)

	start := time.Now()
	_, err := c.Receive(crlf)
	elapsed := time.Since(start)
	if !errors.Is(err, ErrFrameTimeout) {
		t.Fatalf("expected ErrFrameTimeout, got %v", err)
	}
	if elapsed < 50*time.Millisecond || elapsed > time.Second {
		t.Fatalf("idle timeout fired after %v", elapsed)
	}
}

func TestReceiveMaxFrameDelayTimeout(t *testing.T) {
	testlog.Start(t)
	cfg := shortConfig()
	cfg.IdleTimeout = 2 * time.Second
	cfg.MaxFrameDelay = 200 * time.Millisecond
	c, remote := pipeConn(t, cfg)

	// The producer keeps the connection busy with one byte every 40ms,
	// each gap well inside the idle timeout, but never completes the
	// frame. The total frame budget has to fire.
	go func() {
		for i := 0; i < 20; i++ {
			if _, err := remote.Write([]byte("x")); err != nil {
				return
			}
			time.Sleep(40 * time.Millisecond)
		}
	}()

	start := time.Now()
	_, err := c.Receive(crlf)
	elapsed := time.Since(start)
	if !errors.Is(err, ErrFrameTimeout) {
		t.Fatalf("expected ErrFrameTimeout, got %v", err)
	}
	if elapsed > 1500*time.Millisecond {
		t.Fatalf("frame delay timeout fired after %v", elapsed)
	}
}

func TestReceiveRemoteClosedMidFrame(t *testing.T) {
	testlog.Start(t)
	c, remote := pipeConn(t, shortConfig())
	go func() {
		_, _ = remote.Write([]byte("partial"))
		_ = remote.Close()
	}()

	_, err := c.Receive(crlf)
	if !errors.Is(err, ErrRemoteClosed) {
		t.Fatalf("expected ErrRemoteClosed, got %v", err)
	}
	if errors.Is(err, ErrFrameTimeout) {
		t.Fatalf("remote close must not classify as timeout: %v", err)
	}
}

func TestReceiveEmptyDelimiter(t *testing.T) {
	testlog.Start(t)
	c, _ := pipeConn(t, shortConfig())
	if _, err := c.Receive(nil); !errors.Is(err, ErrEmptyDelimiter) {
		t.Fatalf("expected ErrEmptyDelimiter, got %v", err)
	}
}

func TestCloseContract(t *testing.T) {
	testlog.Start(t)
	addr := startProducer(t, func(c net.Conn) {
		buf := make([]byte, 1)
		_, _ = c.Read(buf)
	})

	c, err := Dial(addr, shortConfig())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close must be a no-op, got %v", err)
	}
	if _, err := c.Receive(crlf); !errors.Is(err, ErrConnClosed) {
		t.Fatalf("receive after close: %v", err)
	}
	if err := c.Send([]byte("x")); !errors.Is(err, ErrConnClosed) {
		t.Fatalf("send after close: %v", err)
	}
}

func TestSendDeliversFullPayload(t *testing.T) {
	testlog.Start(t)
	got := make(chan []byte, 1)
	addr := startProducer(t, func(c net.Conn) {
		buf := make([]byte, 5)
		if _, err := io.ReadFull(c, buf); err != nil {
			return
		}
		got <- buf
	})

	c, err := Dial(addr, shortConfig())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if err := c.Send([]byte("hello")); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case payload := <-got:
		if string(payload) != "hello" {
			t.Fatalf("payload mismatch: %q", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("producer never received payload")
	}
}

func TestDialInvalidAddress(t *testing.T) {
	testlog.Start(t)
	for _, addr := range []string{"missing-port", "127.0.0.1:notaport", ":7800"} {
		_, err := Dial(addr, shortConfig())
		if !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("addr %q: expected ErrInvalidAddress, got %v", addr, err)
		}
	}
}

func TestDialRefusedIsTransient(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	_, err = Dial(addr, shortConfig())
	if err == nil {
		t.Fatalf("expected dial failure")
	}
	if errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("refused dial must stay transient, got %v", err)
	}
}

func TestConfigWithDefaults(t *testing.T) {
	testlog.Start(t)
	cfg := Config{}.WithDefaults()
	def := DefaultConfig()
	if cfg != def {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	custom := Config{IdleTimeout: time.Minute}.WithDefaults()
	if custom.IdleTimeout != time.Minute {
		t.Fatalf("explicit idle timeout overwritten: %v", custom.IdleTimeout)
	}
	if custom.MaxFrameDelay != def.MaxFrameDelay {
		t.Fatalf("unset max frame delay not defaulted: %v", custom.MaxFrameDelay)
	}
}
