// File: network/channel.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
//
// Channel is the producer (sender) side of one partition's data path:
// connect, register with retry on PartitionNotRegistered, stream Data
// and Event frames, and close with an ordered EndOfStream (spec §4.4
// "Channel lifecycle (producer side)").

package network

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nebulastream/streamcore/errs"
	"github.com/nebulastream/streamcore/partition"
)

// ChannelConfig tunes registration retry and the bounded send queue.
type ChannelConfig struct {
	MaxRegistrationRetries int
	InitialBackoff         time.Duration
	MaxBackoff             time.Duration
	SendQueueDepth         int
}

// DefaultChannelConfig returns conservative retry defaults.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		MaxRegistrationRetries: 5,
		InitialBackoff:         10 * time.Millisecond,
		MaxBackoff:             1 * time.Second,
		SendQueueDepth:         64,
	}
}

// Channel is a connection dedicated to one partition. A SinkStage holds
// one Channel per partition, and every worker that executes that stage
// calls SendBuffer on it; there is no per-worker Channel. sendCh is a Go
// channel, so those concurrent senders are safe, and one sendLoop
// goroutine drains it (spec §5 "Network send queue per channel").
type Channel struct {
	cfg      ChannelConfig
	target   NodeLocation
	channel  partition.NesPartition
	conn     net.Conn
	log      *logrus.Entry
	sendCh   chan Frame // Data frames: FIFO, backpressure-bearing
	eventCh  chan Frame // Event frames: priority, best-effort
	errCh    chan error
	closedCh chan struct{}
}

// Dial connects to target, performs the registration handshake (with
// retry/backoff on PartitionNotRegistered), and starts the channel's
// send loop. Fails with ChannelRegistrationFailed once retries are
// exhausted (spec §4.4, §7).
func Dial(ctx context.Context, target NodeLocation, channel partition.NesPartition, cfg ChannelConfig) (*Channel, error) {
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", target.Address())
	if err != nil {
		return nil, errs.New(errs.CodeChannelRegistrationFailed, "dial failed").WithContext("target", target.Address())
	}

	log := logrus.WithFields(logrus.Fields{
		"component": "network.Channel",
		"partition": channel.String(),
		"target":    target.Address(),
	})

	if err := registerWithRetry(ctx, conn, channel, cfg, log); err != nil {
		conn.Close()
		return nil, err
	}

	c := &Channel{
		cfg:      cfg,
		target:   target,
		channel:  channel,
		conn:     conn,
		log:      log,
		sendCh:   make(chan Frame, cfg.SendQueueDepth),
		eventCh:  make(chan Frame, cfg.SendQueueDepth),
		errCh:    make(chan error, 1),
		closedCh: make(chan struct{}),
	}
	go c.sendLoop()
	return c, nil
}

func registerWithRetry(ctx context.Context, conn net.Conn, channel partition.NesPartition, cfg ChannelConfig, log *logrus.Entry) error {
	backoff := cfg.InitialBackoff
	for attempt := 0; attempt <= cfg.MaxRegistrationRetries; attempt++ {
		if err := WriteFrame(conn, Frame{Type: MessageRegister, Channel: channel}); err != nil {
			return errs.New(errs.CodeChannelRegistrationFailed, "register write failed")
		}
		reply, err := ReadFrame(conn)
		if err != nil {
			return errs.New(errs.CodeChannelRegistrationFailed, "register read failed")
		}
		switch reply.Type {
		case MessageAck:
			return nil
		case MessageError:
			errType, _ := DecodeErrorPayload(reply.Payload)
			if errType != ErrorPartitionNotRegistered {
				return errs.New(errs.CodeChannelRegistrationFailed, "server rejected registration")
			}
			log.WithField("attempt", attempt).Debug("registration retry: partition not yet registered")
		default:
			return errs.New(errs.CodeChannelRegistrationFailed, "unexpected registration reply")
		}

		select {
		case <-ctx.Done():
			return errs.New(errs.CodeChannelRegistrationFailed, "registration cancelled")
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
	return errs.New(errs.CodeChannelRegistrationFailed, "registration retries exhausted").
		WithContext("retries", cfg.MaxRegistrationRetries)
}

// sendLoop always drains eventCh ahead of sendCh, so a queued Event
// frame overtakes any Data frames still waiting behind it (spec §4.4
// "Events are out-of-band: they may overtake pending Data frames in
// the producer's send path").
func (c *Channel) sendLoop() {
	defer close(c.closedCh)
	for {
		select {
		case f, ok := <-c.eventCh:
			if ok {
				c.writeFrame(f)
				continue
			}
			c.eventCh = nil
		default:
		}

		select {
		case f, ok := <-c.eventCh:
			if !ok {
				c.eventCh = nil
				continue
			}
			c.writeFrame(f)
		case f, ok := <-c.sendCh:
			if !ok {
				return
			}
			c.writeFrame(f)
		}
	}
}

func (c *Channel) writeFrame(f Frame) {
	if err := WriteFrame(c.conn, f); err != nil {
		c.log.WithError(err).Warn("send failed after registration")
		select {
		case c.errCh <- err:
		default:
		}
	}
}

// SendBuffer frames and enqueues a Data message. Blocks on the bounded
// send queue when the consumer (or network) is slower than production,
// which is the mechanism by which backpressure propagates upstream
// (spec §4.7 "Backpressure").
func (c *Channel) SendBuffer(ctx context.Context, tupleCount, tupleSize uint32, watermark int64, buf []byte) error {
	f := Frame{
		Type:    MessageData,
		Channel: c.channel,
		Payload: EncodeDataPayload(tupleCount, tupleSize, watermark, buf),
	}
	select {
	case c.sendCh <- f:
		return nil
	case err := <-c.errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendEvent enqueues an Event message onto the priority queue: it is
// best-effort (dropped, not retried, if that queue is full) but it
// genuinely overtakes any Data frames already queued in sendCh, since
// sendLoop always drains eventCh first (spec §4.4 "Ordering guarantees").
func (c *Channel) SendEvent(kind EventKind, opaque []byte) {
	f := Frame{
		Type:    MessageEvent,
		Channel: c.channel,
		Payload: EncodeEventPayload(kind, opaque),
	}
	select {
	case c.eventCh <- f:
	default:
		c.log.Warn("event dropped: event queue full")
	}
}

// Close sends EndOfStream, drains the send queue, and tears down the
// connection. EOS is strictly ordered after all previously queued Data
// frames because it is enqueued on the same channel; closing eventCh
// does not disturb that ordering since sendLoop only treats an empty,
// closed eventCh as "no event pending" and falls through to sendCh.
func (c *Channel) Close() error {
	f := Frame{Type: MessageEndOfStream, Channel: c.channel}
	select {
	case c.sendCh <- f:
	case <-time.After(c.cfg.MaxBackoff):
		c.log.Warn("timed out enqueueing EndOfStream; closing anyway")
	}
	close(c.sendCh)
	close(c.eventCh)
	<-c.closedCh
	return c.conn.Close()
}
