package periphisp

import (
	"bytes"
	"errors"
	"testing"

	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/pin"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"
)

var (
	enableOp = conntest.IO{W: []byte{0xAC, 0x53, 0x00, 0x00}, R: []byte{0x00, 0xAC, 0x53, 0x00}}
	sigOp    = conntest.IO{W: []byte{0x30, 0x00, 0x00, 0x00}, R: []byte{0x00, 0x30, 0x00, 0x1E}}
)

// playbackPorts hands out one playback port per session.
type playbackPorts struct {
	sessions [][]conntest.IO
	opened   []*spitest.Playback
}

func (pp *playbackPorts) open() (spi.PortCloser, error) {
	if len(pp.opened) == len(pp.sessions) {
		return nil, errors.New("no more sessions")
	}
	p := &spitest.Playback{Playback: conntest.Playback{Ops: pp.sessions[len(pp.opened)]}}
	pp.opened = append(pp.opened, p)
	return p, nil
}

// muxPin is a test pin that tracks its function like a SoC GPIO: driving
// it or making it an input takes it away from any peripheral.
type muxPin struct {
	gpiotest.Pin
	fn pin.Func
}

func (m *muxPin) Out(l gpio.Level) error {
	m.fn = "OUT"
	return m.Pin.Out(l)
}

func (m *muxPin) In(pull gpio.Pull, edge gpio.Edge) error {
	m.fn = "IN"
	return m.Pin.In(pull, edge)
}

func (m *muxPin) Func() pin.Func {
	return m.fn
}

func (m *muxPin) SupportedFuncs() []pin.Func {
	return []pin.Func{"IN", "OUT", spi.CLK, spi.MOSI}
}

func (m *muxPin) SetFunc(f pin.Func) error {
	m.fn = f
	return nil
}

func TestBus(t *testing.T) {
	ports := &playbackPorts{sessions: [][]conntest.IO{{enableOp}, {sigOp}}}
	bus := NewBus(ports.open, 0)

	r := make([]byte, 4)
	if err := bus.Tx(enableOp.W, r); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Tx before Begin error = %v, want ErrNotConnected", err)
	}

	if err := bus.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	// A second Begin keeps the claimed port.
	if err := bus.Begin(); err != nil {
		t.Fatalf("repeated Begin() error = %v", err)
	}
	if err := bus.Tx(enableOp.W, r); err != nil {
		t.Fatalf("Tx() error = %v", err)
	}
	if r[2] != 0x53 {
		t.Errorf("echo = 0x%02X, want 0x53", r[2])
	}

	if err := bus.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if err := bus.Tx(sigOp.W, r); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Tx after End error = %v, want ErrNotConnected", err)
	}
	if err := bus.End(); err != nil {
		t.Fatalf("End() on a released bus error = %v", err)
	}

	if err := bus.Begin(); err != nil {
		t.Fatalf("second session Begin() error = %v", err)
	}
	if err := bus.Tx(sigOp.W, r); err != nil {
		t.Fatalf("Tx() error = %v", err)
	}
	if !bytes.Equal(r, sigOp.R) {
		t.Errorf("read = % X", r)
	}
	if err := bus.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	if len(ports.opened) != 2 {
		t.Errorf("ports opened = %d, want one per session", len(ports.opened))
	}
}

func TestBusBeginOpenError(t *testing.T) {
	bus := NewBus((&playbackPorts{}).open, 0)
	if err := bus.Begin(); err == nil {
		t.Fatal("Begin() succeeded without a port")
	}
	if err := bus.Tx(enableOp.W, make([]byte, 4)); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Tx error = %v, want ErrNotConnected", err)
	}
}

func TestBusPinsStayWithSPI(t *testing.T) {
	ports := &playbackPorts{sessions: [][]conntest.IO{{enableOp}, {enableOp}}}
	bus := NewBus(ports.open, 0)

	sck := &muxPin{Pin: gpiotest.Pin{N: "GPIO11"}, fn: spi.CLK}
	mosi := &muxPin{Pin: gpiotest.Pin{N: "GPIO10"}, fn: spi.MOSI}
	clock := newBusPin(bus, sck, spi.CLK)
	data := newBusPin(bus, mosi, spi.MOSI)

	for session := 1; session <= 2; session++ {
		if err := bus.Begin(); err != nil {
			t.Fatalf("session %d: Begin() error = %v", session, err)
		}
		if err := clock.Out(false); err != nil {
			t.Fatalf("session %d: clock Out error = %v", session, err)
		}
		if sck.fn != spi.CLK || mosi.fn != spi.MOSI {
			t.Fatalf("session %d: pins muxed to %s/%s while the bus is claimed", session, sck.fn, mosi.fn)
		}

		r := make([]byte, 4)
		if err := bus.Tx(enableOp.W, r); err != nil {
			t.Fatalf("session %d: Tx() error = %v", session, err)
		}
		if r[2] != 0x53 {
			t.Errorf("session %d: echo = 0x%02X, want 0x53", session, r[2])
		}

		if err := bus.End(); err != nil {
			t.Fatalf("session %d: End() error = %v", session, err)
		}
		if err := data.Release(); err != nil {
			t.Fatalf("session %d: data Release error = %v", session, err)
		}
		if err := clock.Release(); err != nil {
			t.Fatalf("session %d: clock Release error = %v", session, err)
		}
		if sck.fn != "IN" || mosi.fn != "IN" {
			t.Errorf("session %d: released pins are %s/%s, want inputs", session, sck.fn, mosi.fn)
		}
	}
}

func TestNewBusDefaultFrequency(t *testing.T) {
	bus := NewBus((&playbackPorts{}).open, 0)
	if bus.freq != DefaultFrequency {
		t.Errorf("freq = %s, want %s", bus.freq, DefaultFrequency)
	}
}

func TestPin(t *testing.T) {
	p := &gpiotest.Pin{N: "GPIO25"}
	line := NewPin(p)

	if err := line.Out(true); err != nil {
		t.Fatalf("Out(true) error = %v", err)
	}
	if p.Read() != gpio.High {
		t.Error("pin not driven high")
	}

	if err := line.Out(false); err != nil {
		t.Fatalf("Out(false) error = %v", err)
	}
	if p.Read() != gpio.Low {
		t.Error("pin not driven low")
	}

	if err := line.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if line.String() != "GPIO25" {
		t.Errorf("String() = %q", line.String())
	}
}

func TestNewPanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"nil opener", func() { NewBus(nil, 0) }},
		{"nil pin", func() { NewPin(nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn()
		})
	}
}
