package network

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nebulastream/streamcore/partition"
)

type recordingListener struct {
	mu          sync.Mutex
	dataCalls   []recordedData
	eosCalls    []partition.NesPartition
	serverErrs  []error
	channelErrs []error
}

type recordedData struct {
	partition  partition.NesPartition
	payload    []byte
	tupleCount uint32
	watermark  int64
}

func (l *recordingListener) OnDataBuffer(p partition.NesPartition, payload []byte, tupleCount uint32, watermark int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := append([]byte(nil), payload...)
	l.dataCalls = append(l.dataCalls, recordedData{p, cp, tupleCount, watermark})
}

func (l *recordingListener) OnEndOfStream(p partition.NesPartition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.eosCalls = append(l.eosCalls, p)
}

func (l *recordingListener) OnServerError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.serverErrs = append(l.serverErrs, err)
}

func (l *recordingListener) OnChannelError(p partition.NesPartition, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.channelErrs = append(l.channelErrs, err)
}

func (l *recordingListener) waitForData(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		l.mu.Lock()
		got := len(l.dataCalls)
		l.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d data calls", n)
}

func (l *recordingListener) waitForEOS(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		l.mu.Lock()
		got := len(l.eosCalls)
		l.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d EOS calls", n)
}

func startTestServer(t *testing.T, registry *partition.Registry, events Listener) *Server {
	t.Helper()
	srv, err := NewServer("127.0.0.1:0", registry, events)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestChannelRegistersAndSendsBuffer(t *testing.T) {
	registry := partition.NewRegistry()
	p := partition.NesPartition{QueryID: 1, OperatorID: 1, PartitionID: 1, SubpartitionID: 1}
	registry.RegisterConsumer(p, func([]byte, uint32, int64) {})

	listener := &recordingListener{}
	srv := startTestServer(t, registry, listener)

	target := NodeLocation{Host: "127.0.0.1", DataPort: srv.Addr().(*net.TCPAddr).Port}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := Dial(ctx, target, p, DefaultChannelConfig())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer ch.Close()

	if err := ch.SendBuffer(ctx, 3, 16, 99, []byte("payload")); err != nil {
		t.Fatalf("SendBuffer() error = %v", err)
	}

	listener.waitForData(t, 1)
	listener.mu.Lock()
	got := listener.dataCalls[0]
	listener.mu.Unlock()
	if got.tupleCount != 3 || got.watermark != 99 || string(got.payload) != "payload" {
		t.Fatalf("dispatched data = %+v, want tupleCount=3 watermark=99 payload=payload", got)
	}
}

func TestChannelRetriesRegistrationUntilConsumerRegisters(t *testing.T) {
	registry := partition.NewRegistry()
	p := partition.NesPartition{QueryID: 2, OperatorID: 2, PartitionID: 2, SubpartitionID: 2}

	listener := &recordingListener{}
	srv := startTestServer(t, registry, listener)

	go func() {
		time.Sleep(30 * time.Millisecond)
		registry.RegisterConsumer(p, func([]byte, uint32, int64) {})
	}()

	target := NodeLocation{Host: "127.0.0.1", DataPort: srv.Addr().(*net.TCPAddr).Port}
	cfg := DefaultChannelConfig()
	cfg.InitialBackoff = 5 * time.Millisecond
	cfg.MaxRegistrationRetries = 20

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := Dial(ctx, target, p, cfg)
	if err != nil {
		t.Fatalf("Dial() error = %v, want eventual success once the consumer registers", err)
	}
	defer ch.Close()
}

func TestChannelCloseDeliversEndOfStream(t *testing.T) {
	registry := partition.NewRegistry()
	p := partition.NesPartition{QueryID: 3, OperatorID: 3, PartitionID: 3, SubpartitionID: 3}
	registry.RegisterConsumer(p, func([]byte, uint32, int64) {})

	listener := &recordingListener{}
	srv := startTestServer(t, registry, listener)

	target := NodeLocation{Host: "127.0.0.1", DataPort: srv.Addr().(*net.TCPAddr).Port}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := Dial(ctx, target, p, DefaultChannelConfig())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	listener.waitForEOS(t, 1)
}

func TestChannelFailsWhenConsumerNeverRegisters(t *testing.T) {
	registry := partition.NewRegistry()
	p := partition.NesPartition{QueryID: 4, OperatorID: 4, PartitionID: 4, SubpartitionID: 4}

	listener := &recordingListener{}
	srv := startTestServer(t, registry, listener)

	target := NodeLocation{Host: "127.0.0.1", DataPort: srv.Addr().(*net.TCPAddr).Port}
	cfg := DefaultChannelConfig()
	cfg.InitialBackoff = 2 * time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	cfg.MaxRegistrationRetries = 3

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := Dial(ctx, target, p, cfg); err == nil {
		t.Fatalf("expected Dial() to fail with ChannelRegistrationFailed once retries are exhausted")
	}
}
