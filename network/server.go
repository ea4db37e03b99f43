// File: network/server.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
//
// Server is the consumer-side receiver reactor: one server socket bound
// at init, one goroutine per accepted connection, dispatching each
// arriving frame through the Partition Manager (spec §4.4 "Channel
// lifecycle (consumer side / receiver loop)").

package network

import (
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nebulastream/streamcore/partition"
)

// Server accepts producer connections and dispatches their frames.
type Server struct {
	listener net.Listener
	registry *partition.Registry
	events   Listener
	log      *logrus.Entry

	wg sync.WaitGroup
}

// NewServer binds addr and returns a Server ready for Serve.
func NewServer(addr string, registry *partition.Registry, events Listener) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: ln,
		registry: registry,
		events:   events,
		log:      logrus.WithField("component", "network.Server"),
	}, nil
}

// Addr returns the bound listener address, useful when addr was ":0".
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Serve accepts connections until the listener is closed. It is meant
// to run on the node's single network I/O goroutine (spec §5).
func (s *Server) Serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.events != nil {
				s.events.OnServerError(err)
			}
			return
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// Close stops accepting and waits for in-flight connection handlers to drain.
func (s *Server) Close() error {
	err := s.listener.Close()
	s.wg.Wait()
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	var producerPartition partition.NesPartition
	var isProducer bool
	defer func() {
		if isProducer {
			s.registry.UnregisterProducer(producerPartition)
		}
	}()

	for {
		f, err := ReadFrame(conn)
		if err != nil {
			return
		}

		switch f.Type {
		case MessageRegister:
			if s.handleRegister(conn, f) && !isProducer {
				s.registry.RegisterProducer(f.Channel)
				producerPartition = f.Channel
				isProducer = true
			}
		case MessageData:
			s.handleData(conn, f)
		case MessageEvent:
			// Event frames are accepted and discarded: they are not
			// dispatched to the registry or the Listener. The reactor only
			// keeps the connection open on this valid frame type.
		case MessageEndOfStream:
			if s.events != nil {
				s.events.OnEndOfStream(f.Channel)
			}
		default:
			s.log.WithField("type", f.Type).Warn("unexpected frame type from producer")
		}
	}
}

// handleRegister replies Ack or Error and reports whether the
// connection is now a registered producer for f.Channel, so the caller
// can track the producer/consumer pairing in the partition registry
// (spec §4.3 "registry is the rendezvous... between a NetworkSource
// (consumer) and arriving wire messages from remote NetworkSinks
// (producers)").
func (s *Server) handleRegister(conn net.Conn, f Frame) bool {
	switch s.registry.IsConsumerRegistered(f.Channel) {
	case partition.Registered:
		WriteFrame(conn, Frame{Type: MessageAck, Channel: f.Channel})
		return true
	default:
		WriteFrame(conn, Frame{
			Type:    MessageError,
			Channel: f.Channel,
			Payload: EncodeErrorPayload(ErrorPartitionNotRegistered),
		})
		return false
	}
}

func (s *Server) handleData(conn net.Conn, f Frame) {
	tupleCount, _, watermark, buf, err := DecodeDataPayload(f.Payload)
	if err != nil {
		WriteFrame(conn, Frame{
			Type:    MessageError,
			Channel: f.Channel,
			Payload: EncodeErrorPayload(ErrorProtocol),
		})
		return
	}

	if !s.registry.Dispatch(f.Channel, buf, tupleCount, watermark) {
		WriteFrame(conn, Frame{
			Type:    MessageError,
			Channel: f.Channel,
			Payload: EncodeErrorPayload(ErrorPartitionNotRegistered),
		})
		return
	}
	if s.events != nil {
		s.events.OnDataBuffer(f.Channel, buf, tupleCount, watermark)
	}
}
