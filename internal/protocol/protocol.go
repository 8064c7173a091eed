package protocol

import (
	"errors"
	"fmt"
)

// ErrCorruptedData marks a single frame whose payload could not be
// decoded. It is recoverable per frame: the collector logs it and keeps
// reading on the same connection. Any other error returned by a
// Protocol is treated as a defect and propagates.
var ErrCorruptedData = errors.New("protocol: corrupted data")

// Corrupted wraps ErrCorruptedData with a description of the defect.
func Corrupted(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptedData, fmt.Sprintf(format, args...))
}

// DefaultDelimiter terminates frames for protocols that keep the
// conventional line-oriented framing.
var DefaultDelimiter = []byte("\r\n")

// Conn is the connection surface a Protocol may use while handling an
// event, typically to send commands or acknowledgements back to the
// producer.
type Conn interface {
	Send(p []byte) error
	Addr() string
}

// Protocol describes the conversation with one kind of data producer.
// Implementations declare the frame delimiter and react to lifecycle
// and data events raised by the collector.
type Protocol interface {
	// Delimiter returns the byte sequence marking the end of each frame.
	Delimiter() []byte

	// OnConnected is invoked once per successful connect, before any
	// frame is read.
	OnConnected(c Conn) error

	// OnData is invoked once per received frame, delimiter already
	// stripped. Returning an error wrapping ErrCorruptedData discards
	// the frame and keeps the connection; any other error propagates
	// out of the collector.
	OnData(c Conn, frame []byte) error
}

// Base carries the default Protocol behavior. Embed it to implement
// only OnData; no subclass relationship is required, any value
// satisfying Protocol qualifies.
type Base struct{}

func (Base) Delimiter() []byte { return DefaultDelimiter }

func (Base) OnConnected(Conn) error { return nil }

// DataHandler consumes fully decoded application items. The item shape
// is a private agreement between a concrete Protocol and its handler.
type DataHandler interface {
	Process(item any) error
}
