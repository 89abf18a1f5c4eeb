package isp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/moffa90/go-avrisp/protocol"
	"github.com/moffa90/go-avrisp/timing"
)

// Dispatcher serves STK500 requests from a host and executes them on a
// target attached to the bus.
//
// Commands are executed one at a time. Status accessors are safe to call
// from other goroutines while Serve is running; they report the session as
// of the last completed command and never wait for a command in flight.
type Dispatcher struct {
	host   io.ReadWriter
	bus    Bus
	lines  Lines
	config Config

	mu  sync.Mutex
	s   Session
	out bytes.Buffer

	statusMu sync.Mutex
	status   Status
}

// New creates a Dispatcher reading requests from host and driving the
// target through bus and lines.
//
// Example:
//
//	port, _ := serial.Open("/dev/ttyS0", &serial.Mode{BaudRate: 19200})
//	d := isp.New(port, bus, lines,
//	    isp.WithLogger(logger),
//	    isp.WithIndicator(isp.NewTextIndicator(os.Stderr)),
//	)
//	err := d.Serve(ctx)
func New(host io.ReadWriter, bus Bus, lines Lines, opts ...Option) *Dispatcher {
	if host == nil {
		panic("host cannot be nil")
	}
	if bus == nil {
		panic("bus cannot be nil")
	}
	if lines.Reset == nil || lines.Clock == nil || lines.DataOut == nil {
		panic("reset, clock and data out lines are required")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Clock == nil {
		cfg.Clock = timing.NewSystemClock()
	}

	return &Dispatcher{
		host:   host,
		bus:    bus,
		lines:  lines,
		config: cfg,
	}
}

// Serve executes host requests until reading from or writing to the host
// fails or ctx is cancelled. Cancellation is only observed between
// commands; a command that has started runs to completion.
func (d *Dispatcher) Serve(ctx context.Context) error {
	d.logInfo("serving")
	for {
		if err := d.Step(ctx); err != nil {
			return err
		}
	}
}

// Step reads and executes exactly one request and writes its reply.
// Protocol errors are answered on the wire and do not make Step fail.
func (d *Dispatcher) Step(ctx context.Context) error {
	op, err := d.readOpcode(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.publish()

	d.out.Reset()
	errs := d.s.Errors

	if err := d.dispatch(op); err != nil {
		return err
	}

	if d.out.Len() > 0 {
		if _, err := d.host.Write(d.out.Bytes()); err != nil {
			return fmt.Errorf("write reply: %w", err)
		}
	}

	if d.s.Errors != errs && d.config.Indicator != nil {
		d.config.Indicator.Errors(d.s.Errors)
	}

	if d.config.Rearm && d.s.Mode == Ended {
		d.s.Mode = Idle
		d.logDebug("session re-armed")
	}
	return nil
}

// Rearm returns an ended session to Idle so the next Enter Programming
// Mode runs the reset sequence again.
func (d *Dispatcher) Rearm() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.s.Mode == Ended {
		d.s.Mode = Idle
		d.publish()
	}
}

// Status returns a snapshot of the session taken after the last completed
// command.
func (d *Dispatcher) Status() Status {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()

	return d.status
}

// publish copies the session into the status snapshot. d.mu must be held.
func (d *Dispatcher) publish() {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()

	d.status = Status{
		Mode:            d.s.Mode,
		Address:         d.s.Address,
		Errors:          d.s.Errors,
		Params:          d.s.Params,
		ResetActiveHigh: d.s.ResetActiveHigh,
	}
}

// Errors returns the session error counter.
func (d *Dispatcher) Errors() uint32 {
	return d.Status().Errors
}

// Mode returns the bus ownership state.
func (d *Dispatcher) Mode() Mode {
	return d.Status().Mode
}

func (d *Dispatcher) dispatch(op byte) error {
	switch op {
	case protocol.CmdGetSync:
		d.s.Errors = 0
		return d.emptyReply()

	case protocol.CmdGetSignOn:
		return d.signOn()

	case protocol.CmdGetParameter:
		parm, err := d.getch()
		if err != nil {
			return err
		}
		return d.byteReply(d.parameter(parm))

	case protocol.CmdSetDevice:
		if err := d.fill(protocol.ParametersSize); err != nil {
			return err
		}
		d.setParameters()
		return d.emptyReply()

	case protocol.CmdSetDeviceExt:
		if err := d.fill(protocol.ExtParametersSize); err != nil {
			return err
		}
		return d.emptyReply()

	case protocol.CmdEnterProgMode:
		if d.s.Mode == Idle {
			d.startProgramming()
		}
		return d.emptyReply()

	case protocol.CmdLoadAddress:
		lo, err := d.getch()
		if err != nil {
			return err
		}
		hi, err := d.getch()
		if err != nil {
			return err
		}
		d.s.Address = uint16(lo) | uint16(hi)<<8
		return d.emptyReply()

	case protocol.CmdProgFlash:
		// Superseded by Program Page; hosts still expect a success reply.
		if err := d.drain(2); err != nil {
			return err
		}
		return d.emptyReply()

	case protocol.CmdProgData:
		if err := d.drain(1); err != nil {
			return err
		}
		return d.emptyReply()

	case protocol.CmdProgPage:
		return d.programPage()

	case protocol.CmdReadPage:
		return d.readPage()

	case protocol.CmdUniversal:
		if err := d.fill(protocol.UniversalSize); err != nil {
			return err
		}
		b := d.s.Buffer
		return d.byteReply(d.transaction(b[0], b[1], b[2], b[3]))

	case protocol.CmdLeaveProgMode:
		d.endProgramming()
		return d.emptyReply()

	case protocol.CmdReadSign:
		return d.readSignature()

	case protocol.CRCEOP:
		// A bare CRC_EOP where a command was expected: the host is out of
		// step, and the next byte starts fresh.
		d.noSync()
		return nil

	default:
		d.s.Errors++
		eop, err := d.getch()
		if err != nil {
			return err
		}
		if eop == protocol.CRCEOP {
			d.reply(protocol.RespInSync, protocol.RespUnknown)
		} else {
			d.reply(protocol.RespNoSync)
		}
		d.logDebug("unknown command", "command", op)
		return nil
	}
}

func (d *Dispatcher) signOn() error {
	eop, err := d.getch()
	if err != nil {
		return err
	}
	if eop != protocol.CRCEOP {
		d.noSync()
		return nil
	}
	d.reply(protocol.RespInSync)
	d.out.WriteString(protocol.SignOnMessage)
	d.reply(protocol.RespOK)
	return nil
}

func (d *Dispatcher) parameter(parm byte) byte {
	switch parm {
	case protocol.ParmHWVersion:
		return d.config.HWVersion
	case protocol.ParmSWMajor:
		return d.config.SWMajor
	case protocol.ParmSWMinor:
		return d.config.SWMinor
	case protocol.ParmProgrammerType:
		return protocol.ProgrammerTypeSerial
	default:
		return 0
	}
}

// setParameters decodes the parameter block held in the buffer.
func (d *Dispatcher) setParameters() {
	p, err := protocol.DecodeParameters(d.s.Buffer[:protocol.ParametersSize])
	if err != nil {
		d.logError("decode parameters", "error", err)
		return
	}
	d.s.Params = p
	d.s.ResetActiveHigh = p.ResetActiveHigh()

	if _, ok := pageMasks[p.PageSize]; !ok {
		d.logInfo("unsupported page size, page tracking disabled", "page_size", p.PageSize)
	}
	d.logDebug("device parameters",
		"device_code", fmt.Sprintf("0x%02X", p.DeviceCode),
		"page_size", p.PageSize,
		"eeprom_size", p.EEPROMSize,
		"flash_size", p.FlashSize,
		"reset_active_high", d.s.ResetActiveHigh,
	)
}

func (d *Dispatcher) programPage() error {
	hi, err := d.getch()
	if err != nil {
		return err
	}
	lo, err := d.getch()
	if err != nil {
		return err
	}
	memType, err := d.getch()
	if err != nil {
		return err
	}
	length := int(hi)<<8 | int(lo)

	switch memType {
	case protocol.MemFlash:
		return d.writeFlash(length)
	case protocol.MemEEPROM:
		return d.programEEPROM(length)
	default:
		// The payload is left unread; the host resyncs on the replies
		// to the stray bytes.
		d.logError("program page: unknown memory type", "mem_type", memType)
		d.reply(protocol.RespFailed)
		return nil
	}
}

// getch blocks until one byte arrives from the host.
func (d *Dispatcher) getch() (byte, error) {
	var b [1]byte
	for {
		n, err := d.host.Read(b[:])
		if n == 1 {
			return b[0], nil
		}
		if err != nil {
			return 0, fmt.Errorf("read host: %w", err)
		}
	}
}

// readOpcode is getch with cancellation while the link is idle.
func (d *Dispatcher) readOpcode(ctx context.Context) (byte, error) {
	var b [1]byte
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := d.host.Read(b[:])
		if n == 1 {
			return b[0], nil
		}
		if err != nil {
			return 0, fmt.Errorf("read command: %w", err)
		}
	}
}

// fill reads n bytes from the host into the buffer.
func (d *Dispatcher) fill(n int) error {
	for x := 0; x < n; x++ {
		b, err := d.getch()
		if err != nil {
			return err
		}
		d.s.Buffer[x] = b
	}
	return nil
}

// drain reads and discards n bytes from the host.
func (d *Dispatcher) drain(n int) error {
	for x := 0; x < n; x++ {
		if _, err := d.getch(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) reply(b ...byte) {
	d.out.Write(b)
}

func (d *Dispatcher) noSync() {
	d.s.Errors++
	d.reply(protocol.RespNoSync)
}

// emptyReply answers INSYNC OK if the request is in sync.
func (d *Dispatcher) emptyReply() error {
	eop, err := d.getch()
	if err != nil {
		return err
	}
	if eop != protocol.CRCEOP {
		d.noSync()
		return nil
	}
	d.reply(protocol.RespInSync, protocol.RespOK)
	return nil
}

// byteReply answers INSYNC b OK if the request is in sync.
func (d *Dispatcher) byteReply(b byte) error {
	eop, err := d.getch()
	if err != nil {
		return err
	}
	if eop != protocol.CRCEOP {
		d.noSync()
		return nil
	}
	d.reply(protocol.RespInSync, b, protocol.RespOK)
	return nil
}

// resultReply answers INSYNC result if the request is in sync.
func (d *Dispatcher) resultReply(result byte) error {
	eop, err := d.getch()
	if err != nil {
		return err
	}
	if eop != protocol.CRCEOP {
		d.noSync()
		return nil
	}
	d.reply(protocol.RespInSync, result)
	return nil
}

// failedReply answers INSYNC FAILED and counts the failure if the request
// is in sync. Out of sync, only the framing error is counted.
func (d *Dispatcher) failedReply() error {
	eop, err := d.getch()
	if err != nil {
		return err
	}
	if eop != protocol.CRCEOP {
		d.noSync()
		return nil
	}
	d.s.Errors++
	d.reply(protocol.RespInSync, protocol.RespFailed)
	return nil
}

// logDebug logs a debug message if a logger is configured.
func (d *Dispatcher) logDebug(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (d *Dispatcher) logInfo(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (d *Dispatcher) logError(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Error(msg, keysAndValues...)
	}
}
