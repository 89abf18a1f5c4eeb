package isp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/moffa90/go-avrisp/protocol"
	"github.com/moffa90/go-avrisp/sim"
)

// MockHost replays scripted requests and records replies.
type MockHost struct {
	in  *bytes.Reader
	out bytes.Buffer
}

func NewMockHost(frames ...[]byte) *MockHost {
	return &MockHost{in: bytes.NewReader(bytes.Join(frames, nil))}
}

func (h *MockHost) Read(p []byte) (int, error) {
	if h.in.Len() == 0 {
		return 0, io.EOF
	}
	return h.in.Read(p)
}

func (h *MockHost) Write(p []byte) (int, error) {
	return h.out.Write(p)
}

// recorder keeps one ordered log of line, bus and clock events.
type recorder struct {
	events []string
}

func (r *recorder) add(format string, args ...interface{}) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

// MockLine records every level change of a named line.
type MockLine struct {
	name string
	rec  *recorder
}

func (l *MockLine) Out(high bool) error {
	if high {
		l.rec.add("%s=high", l.name)
	} else {
		l.rec.add("%s=low", l.name)
	}
	return nil
}

func (l *MockLine) Release() error {
	l.rec.add("%s=release", l.name)
	return nil
}

// MockBus records Begin and End around a simulated target.
type MockBus struct {
	*sim.Target
	rec *recorder
}

func (b *MockBus) Begin() error {
	b.rec.add("begin")
	return b.Target.Begin()
}

func (b *MockBus) End() error {
	b.rec.add("end")
	return b.Target.End()
}

// MockClock advances instantly and records every delay.
type MockClock struct {
	rec    *recorder
	now    uint64
	delays []uint64
}

func (c *MockClock) Ticks() uint64 {
	return c.now
}

func (c *MockClock) Delay(ticks uint64) {
	c.rec.add("delay %d", ticks)
	c.delays = append(c.delays, ticks)
	c.now += ticks
}

// MockIndicator records indicator callbacks.
type MockIndicator struct {
	activity []uint8
	errors   []uint32
}

func (m *MockIndicator) Activity(step uint8) {
	m.activity = append(m.activity, step)
}

func (m *MockIndicator) Errors(count uint32) {
	m.errors = append(m.errors, count)
}

// Mock logger for testing
type MockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
}

func (l *MockLogger) Debug(msg string, kv ...interface{}) {
	l.debugMsgs = append(l.debugMsgs, msg)
}

func (l *MockLogger) Info(msg string, kv ...interface{}) {
	l.infoMsgs = append(l.infoMsgs, msg)
}

func (l *MockLogger) Error(msg string, kv ...interface{}) {
	l.errorMsgs = append(l.errorMsgs, msg)
}

// harness wires a Dispatcher to a simulated target.
type harness struct {
	d         *Dispatcher
	host      *MockHost
	target    *sim.Target
	rec       *recorder
	clock     *MockClock
	indicator *MockIndicator
	logger    *MockLogger
}

func newHarness(t *testing.T, cfg sim.Config, frames [][]byte, opts ...Option) *harness {
	t.Helper()

	rec := &recorder{}
	h := &harness{
		host:      NewMockHost(frames...),
		target:    sim.NewTarget(cfg),
		rec:       rec,
		clock:     &MockClock{rec: rec},
		indicator: &MockIndicator{},
		logger:    &MockLogger{},
	}
	lines := Lines{
		Reset:   &MockLine{name: "reset", rec: rec},
		Clock:   &MockLine{name: "sck", rec: rec},
		DataOut: &MockLine{name: "mosi", rec: rec},
	}

	opts = append([]Option{
		WithClock(h.clock),
		WithIndicator(h.indicator),
		WithLogger(h.logger),
	}, opts...)
	h.d = New(h.host, &MockBus{Target: h.target, rec: rec}, lines, opts...)
	return h
}

// run serves every scripted request and returns the replies.
func (h *harness) run(t *testing.T) []byte {
	t.Helper()

	err := h.d.Serve(context.Background())
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Serve() error = %v, want EOF", err)
	}
	return h.host.out.Bytes()
}

// script appends frames to be served by the next run.
func (h *harness) script(frames ...[]byte) {
	h.host.in = bytes.NewReader(bytes.Join(frames, nil))
	h.host.out.Reset()
}

func frame(b ...byte) []byte {
	return append(b, protocol.CRCEOP)
}

func progPage(memType byte, data []byte) []byte {
	f := []byte{protocol.CmdProgPage, byte(len(data) >> 8), byte(len(data)), memType}
	f = append(f, data...)
	return append(f, protocol.CRCEOP)
}

func readPage(memType byte, length int) []byte {
	return frame(protocol.CmdReadPage, byte(length>>8), byte(length), memType)
}

func loadAddress(addr uint16) []byte {
	return protocol.BuildLoadAddressCmd(addr)
}

var (
	insyncOK = []byte{protocol.RespInSync, protocol.RespOK}
	enter    = frame(protocol.CmdEnterProgMode)
	leave    = frame(protocol.CmdLeaveProgMode)
	tinyPars = protocol.Parameters{
		DeviceCode: 0x20,
		PageSize:   64,
		EEPROMSize: 512,
		FlashSize:  8192,
	}
	megaPars = protocol.Parameters{
		DeviceCode: 0x86,
		PageSize:   128,
		EEPROMSize: 1024,
		FlashSize:  32768,
	}
)

func replies(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + 3)
	}
	return data
}
