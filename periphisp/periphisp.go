package periphisp

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"

	"github.com/moffa90/go-avrisp/isp"
)

// DefaultFrequency is the programming clock: below a quarter of the
// slowest target clock the AVR datasheets allow (1 MHz / 6).
const DefaultFrequency = physic.MegaHertz / 6

// ErrNotConnected is returned by Tx outside Begin/End.
var ErrNotConnected = errors.New("periphisp: bus not claimed")

var hostInitialized atomic.Bool

// Init loads the periph.io host drivers once per process.
func Init() error {
	if hostInitialized.CompareAndSwap(false, true) {
		if _, err := host.Init(); err != nil {
			hostInitialized.Store(false)
			return fmt.Errorf("host initialization failed: %w", err)
		}
	}
	return nil
}

// PortOpener opens the SPI port for one programming session.
type PortOpener func() (spi.PortCloser, error)

// Bus is an isp.Bus over a periph.io SPI port.
//
// The port is opened and connected by Begin and closed by End. SCK and MOSI
// pins created with newBusPin belong to the bus: while it is claimed they
// ignore Out and Release, and Begin hands them back to the SPI controller.
type Bus struct {
	mu   sync.Mutex
	open PortOpener
	freq physic.Frequency
	port spi.PortCloser
	conn spi.Conn
	pins []*Pin
}

// NewBus returns a Bus clocking the port returned by open at freq. A zero
// freq selects DefaultFrequency.
func NewBus(open PortOpener, freq physic.Frequency) *Bus {
	if open == nil {
		panic("port opener cannot be nil")
	}
	if freq == 0 {
		freq = DefaultFrequency
	}
	return &Bus{open: open, freq: freq}
}

// Begin implements isp.Bus.
func (b *Bus) Begin() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.port != nil {
		return nil
	}

	port, err := b.open()
	if err != nil {
		return fmt.Errorf("open spi: %w", err)
	}
	// AVR serial programming samples on the rising edge, MSB first.
	conn, err := port.Connect(b.freq, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return fmt.Errorf("connect spi: %w", err)
	}

	for _, p := range b.pins {
		if err := p.restore(); err != nil {
			_ = port.Close()
			return fmt.Errorf("restore %s: %w", p, err)
		}
	}

	b.port, b.conn = port, conn
	return nil
}

// End implements isp.Bus.
func (b *Bus) End() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.port == nil {
		return nil
	}
	err := b.port.Close()
	b.port, b.conn = nil, nil
	if err != nil {
		return fmt.Errorf("close spi: %w", err)
	}
	return nil
}

// Tx implements isp.Bus.
func (b *Bus) Tx(w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return ErrNotConnected
	}
	return b.conn.Tx(w, r)
}

func (b *Bus) claimed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.port != nil
}

// Pin adapts a periph.io pin to isp.Line.
type Pin struct {
	p gpio.PinIO

	// bus is set for pins shared with the SPI controller
	bus *Bus
	// fn is the SPI function restored by Bus.Begin; empty when opening
	// the port muxes the pin itself
	fn pin.Func
}

// NewPin wraps p.
func NewPin(p gpio.PinIO) *Pin {
	if p == nil {
		panic("pin cannot be nil")
	}
	return &Pin{p: p}
}

// newBusPin wraps p as a line shared with bus.
func newBusPin(bus *Bus, p gpio.PinIO, fn pin.Func) *Pin {
	l := NewPin(p)
	l.bus = bus
	l.fn = fn

	bus.mu.Lock()
	bus.pins = append(bus.pins, l)
	bus.mu.Unlock()
	return l
}

// Out implements isp.Line. A bus pin is left to the SPI controller while
// the bus is claimed; in mode 0 SCK idles low.
func (p *Pin) Out(high bool) error {
	if p.bus != nil && p.bus.claimed() {
		return nil
	}
	return p.p.Out(gpio.Level(high))
}

// Release implements isp.Line. The pin keeps its pull setting.
func (p *Pin) Release() error {
	if p.bus != nil && p.bus.claimed() {
		return nil
	}
	return p.p.In(gpio.PullNoChange, gpio.NoEdge)
}

// restore switches the pin back to its SPI function.
func (p *Pin) restore() error {
	if p.fn == "" {
		return nil
	}
	pf, ok := p.p.(pin.PinFunc)
	if !ok {
		return nil
	}
	return pf.SetFunc(p.fn)
}

func (p *Pin) String() string {
	return p.p.Name()
}

// Config selects the hardware used by Open.
type Config struct {
	// Port is the spireg port name; empty selects the first port
	Port string

	// Frequency is the SPI clock; zero selects DefaultFrequency
	Frequency physic.Frequency

	// Reset, Clock and DataOut are gpioreg pin names
	Reset   string
	Clock   string
	DataOut string
}

// Hardware is an opened programming interface.
type Hardware struct {
	Bus   *Bus
	Lines isp.Lines
}

// Close releases the SPI port if a session left it claimed.
func (h *Hardware) Close() error {
	return h.Bus.End()
}

// Open initializes the host drivers and resolves the SPI port and pins
// named in cfg. The clock and data pins must be the port's SCK and MOSI.
//
// Example:
//
//	hw, err := periphisp.Open(periphisp.Config{
//	    Port:    "/dev/spidev0.0",
//	    Reset:   "GPIO25",
//	    Clock:   "GPIO11",
//	    DataOut: "GPIO10",
//	})
func Open(cfg Config) (*Hardware, error) {
	if err := Init(); err != nil {
		return nil, err
	}

	var pins [3]gpio.PinIO
	for i, name := range []string{cfg.Reset, cfg.Clock, cfg.DataOut} {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("pin %q not found", name)
		}
		pins[i] = p
	}

	// Fail now rather than at the first Enter Programming Mode.
	port, err := spireg.Open(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", cfg.Port, err)
	}
	if err := port.Close(); err != nil {
		return nil, fmt.Errorf("close spi port %q: %w", cfg.Port, err)
	}

	bus := NewBus(func() (spi.PortCloser, error) {
		return spireg.Open(cfg.Port)
	}, cfg.Frequency)

	return &Hardware{
		Bus: bus,
		Lines: isp.Lines{
			Reset:   NewPin(pins[0]),
			Clock:   newBusPin(bus, pins[1], spi.CLK),
			DataOut: newBusPin(bus, pins[2], spi.MOSI),
		},
	}, nil
}

// OpenFT232H opens the first FTDI FT232H found. SCK, MOSI and MISO are
// ADBUS0 to ADBUS2 and the target reset is ADBUS4.
func OpenFT232H(freq physic.Frequency) (*Hardware, error) {
	if err := Init(); err != nil {
		return nil, err
	}

	ft, err := findFT232H()
	if err != nil {
		return nil, err
	}

	// Opening the MPSSE port sets up ADBUS0 to ADBUS2 again.
	bus := NewBus(ft.SPI, freq)

	return &Hardware{
		Bus: bus,
		Lines: isp.Lines{
			Reset:   NewPin(ft.D4),
			Clock:   newBusPin(bus, ft.D0, ""),
			DataOut: newBusPin(bus, ft.D1, ""),
		},
	}, nil
}

func findFT232H() (*ftdi.FT232H, error) {
	for _, dev := range ftdi.All() {
		if ft, ok := dev.(*ftdi.FT232H); ok {
			return ft, nil
		}
	}
	return nil, errors.New("FT232H device not found")
}
