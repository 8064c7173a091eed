// Package lines implements the Protocol for producers that emit
// CRLF-terminated text records, one record per frame.
package lines

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/pico-collectors/datacollect/internal/logging"
	"github.com/pico-collectors/datacollect/internal/protocol"
)

var ErrHandlerRequired = errors.New("lines: data handler required")

// DefaultMaxRecordBytes bounds one record; anything larger is treated
// as corrupted rather than buffered indefinitely.
const DefaultMaxRecordBytes = 64 * 1024

// Config defines line protocol behavior.
type Config struct {
	// Delimiter overrides the frame terminator. Empty keeps the
	// protocol default of "\r\n".
	Delimiter string

	// MaxRecordBytes bounds the decoded record size. Zero keeps
	// DefaultMaxRecordBytes.
	MaxRecordBytes int
}

// Protocol decodes each frame as one UTF-8 text record and forwards it
// to the data handler as a string.
type Protocol struct {
	handler   protocol.DataHandler
	delim     []byte
	maxRecord int
	log       zerolog.Logger
}

func New(h protocol.DataHandler, cfg Config) (*Protocol, error) {
	if h == nil {
		return nil, ErrHandlerRequired
	}
	delim := protocol.DefaultDelimiter
	if cfg.Delimiter != "" {
		delim = []byte(cfg.Delimiter)
	}
	maxRecord := cfg.MaxRecordBytes
	if maxRecord <= 0 {
		maxRecord = DefaultMaxRecordBytes
	}
	return &Protocol{
		handler:   h,
		delim:     delim,
		maxRecord: maxRecord,
		log:       logging.Component("lines"),
	}, nil
}

func (p *Protocol) Delimiter() []byte {
	return p.delim
}

func (p *Protocol) OnConnected(c protocol.Conn) error {
	p.log.Info().Str("producer", c.Addr()).Msg("producer session started")
	return nil
}

// OnData validates and decodes one record. Malformed records are
// corrupted data, recoverable per frame; handler failures propagate
// unchanged.
func (p *Protocol) OnData(c protocol.Conn, frame []byte) error {
	if len(frame) > p.maxRecord {
		return protocol.Corrupted("record of %d bytes exceeds limit %d", len(frame), p.maxRecord)
	}
	if !utf8.Valid(frame) {
		return protocol.Corrupted("record is not valid utf-8")
	}
	record := strings.TrimSpace(string(frame))
	if record == "" {
		return protocol.Corrupted("empty record")
	}
	return p.handler.Process(record)
}
