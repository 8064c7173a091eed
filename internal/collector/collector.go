package collector

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pico-collectors/datacollect/internal/conn"
	"github.com/pico-collectors/datacollect/internal/logging"
	"github.com/pico-collectors/datacollect/internal/observability"
	"github.com/pico-collectors/datacollect/internal/protocol"
)

var (
	ErrAddressRequired  = errors.New("collector: producer address required")
	ErrProtocolRequired = errors.New("collector: protocol required")
)

// Config defines collector runtime behavior.
type Config struct {
	Address  string
	Cooldown CooldownConfig
	Conn     conn.Config
}

// DefaultConfig returns collector defaults: a fixed five second
// cooldown and the transport defaults from the conn package.
func DefaultConfig() Config {
	return Config{
		Cooldown: CooldownConfig{
			InitialDelay: 5 * time.Second,
			Multiplier:   1.0,
		},
		Conn: conn.DefaultConfig(),
	}
}

// Collector maintains one connection to a fixed producer address,
// forwards frames to its Protocol, and retries connection loss with a
// cooldown. The whole state machine runs on the goroutine that calls
// Run; the stop channel is the only cross-goroutine interaction.
type Collector struct {
	proto protocol.Protocol
	cfg   Config
	log   zerolog.Logger
	rng   *rand.Rand

	stopOnce sync.Once
	stop     chan struct{}
}

// New wires a protocol into a collector for the configured producer.
func New(p protocol.Protocol, cfg Config) (*Collector, error) {
	if p == nil {
		return nil, ErrProtocolRequired
	}
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, ErrAddressRequired
	}
	if cfg.Cooldown.InitialDelay <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	cfg.Conn = cfg.Conn.WithDefaults()
	return &Collector{
		proto: p,
		cfg:   cfg,
		log:   logging.Component("collector").With().Str("producer", cfg.Address).Logger(),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		stop:  make(chan struct{}),
	}, nil
}

// Run blocks, collecting from the producer until Stop is called or a
// permanent failure occurs. Transient connection failures never escape:
// they are converted into a cooldown and retry. Run returns nil after a
// stop, and the terminal error for an invalid producer address or a
// protocol defect. A collector is not restartable once Run returns.
func (c *Collector) Run() error {
	attempt := 0
	for {
		if c.stopRequested() {
			return nil
		}

		cn, err := conn.Dial(c.cfg.Address, c.cfg.Conn)
		if err != nil {
			if errors.Is(err, conn.ErrInvalidAddress) {
				c.log.Error().Err(err).Msg("producer address invalid, giving up")
				return err
			}
			attempt++
			observability.RecordConnectFailure(c.cfg.Address)
			if !c.cooldown(attempt, err) {
				return nil
			}
			continue
		}

		attempt = 0
		observability.RecordConnect(c.cfg.Address)
		c.log.Info().Msg("connected to producer")

		err = c.collect(cn)
		_ = cn.Close()
		observability.RecordDisconnect(c.cfg.Address)
		if err != nil {
			c.log.Error().Err(err).Msg("collector terminating")
			return err
		}
		if c.stopRequested() {
			return nil
		}

		attempt++
		if !c.cooldown(attempt, nil) {
			return nil
		}
	}
}

// Stop requests termination. It is safe to call from any goroutine, is
// idempotent, and returns without waiting for Run to finish. Run
// observes the request at the next loop iteration, cooldown wake-up, or
// expiry of the in-flight receive timeout, whichever comes first.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// collect drives one established connection until it fails or stop is
// requested. Transient connection failures are logged and reported as
// nil so the run loop reconnects; protocol errors other than corrupted
// data are defects and come back non-nil.
func (c *Collector) collect(cn *conn.Conn) error {
	if err := c.proto.OnConnected(cn); err != nil {
		return fmt.Errorf("collector: connected hook: %w", err)
	}
	delim := c.proto.Delimiter()

	for {
		if c.stopRequested() {
			return nil
		}

		frame, err := cn.Receive(delim)
		if err != nil {
			c.log.Warn().Err(err).Msg("connection lost")
			return nil
		}
		observability.RecordFrame(c.cfg.Address, len(frame))
		c.log.Info().Int("bytes", len(frame)).Msg("data received")

		if err := c.proto.OnData(cn, frame); err != nil {
			if errors.Is(err, protocol.ErrCorruptedData) {
				observability.RecordCorruptedFrame(c.cfg.Address)
				c.log.Warn().Err(err).Msg("corrupted frame discarded")
				continue
			}
			return fmt.Errorf("collector: data hook: %w", err)
		}
	}
}

func (c *Collector) stopRequested() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

// cooldown waits out the reconnect delay for the given attempt,
// reporting false if stop was requested first.
func (c *Collector) cooldown(attempt int, cause error) bool {
	delay := c.cfg.Cooldown.Delay(attempt, c.rng)
	evt := c.log.Warn().Dur("cooldown", delay).Int("attempt", attempt)
	if cause != nil {
		evt = evt.Err(cause)
	}
	evt.Msg("disconnected, retrying after cooldown")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-c.stop:
		return false
	case <-timer.C:
		return true
	}
}
