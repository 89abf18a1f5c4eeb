package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/moffa90/go-avrisp/hexfile"
	"github.com/moffa90/go-avrisp/protocol"
)

// chipEraseDelay covers the self-timed chip erase of the supported parts.
const chipEraseDelay = 20 * time.Millisecond

// readBlock is the largest block requested with one Read Page.
const readBlock = protocol.MaxPageSize

// Fuses holds the fuse and lock bytes of a target.
type Fuses struct {
	Low      byte
	High     byte
	Extended byte
	Lock     byte
}

// Programmer drives an STK500v1 in-system programmer such as ArduinoISP.
//
// Each request/reply exchange is serialized, so a Programmer may be shared
// between goroutines; multi-command operations like Program should still be
// run from one goroutine at a time.
type Programmer struct {
	device io.ReadWriter
	config Config

	mu sync.Mutex
}

// New creates a new Programmer talking to the programmer on device.
//
// Example:
//
//	port, _ := serial.Open("/dev/ttyACM0", &serial.Mode{BaudRate: 19200})
//	_ = port.SetReadTimeout(100 * time.Millisecond)
//	prog := client.New(port,
//	    client.WithProgressCallback(progressFunc),
//	    client.WithReadTimeout(2*time.Second),
//	)
func New(device io.ReadWriter, opts ...Option) *Programmer {
	if device == nil {
		panic("device cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Programmer{
		device: device,
		config: cfg,
	}
}

// Program writes a flash image to the target:
//  1. Synchronize with the programmer and send the part parameters
//  2. Enter programming mode and check the device signature
//  3. Erase the chip (unless disabled)
//  4. Program every page holding image data
//  5. Read back and compare (unless disabled)
//  6. Leave programming mode
//
// The operation can be cancelled via context between pages.
//
// Example:
//
//	img, _ := hexfile.Parse("blink.hex")
//	part, _ := client.LookupPart("atmega328p")
//	err := prog.Program(context.Background(), img, part)
func (p *Programmer) Program(ctx context.Context, img *hexfile.Image, part Part) error {
	if img == nil {
		return fmt.Errorf("image cannot be nil")
	}
	if err := img.Check(part.Params.FlashSize); err != nil {
		return err
	}
	pages, err := img.Pages(part.PageSize(), 0xFF)
	if err != nil {
		return err
	}

	startTime := time.Now()

	// Phase 1: Connect
	p.reportProgress(Progress{
		Phase:      PhaseConnecting,
		Percentage: 0,
		TotalPages: len(pages),
	})

	if _, err := p.Connect(ctx, part); err != nil {
		return err
	}

	if err := p.programPages(ctx, pages, startTime); err != nil {
		// The ISP keeps the target in reset until told otherwise.
		if leaveErr := p.LeaveProgMode(context.Background()); leaveErr != nil {
			p.logError("leave programming mode after failure", "error", leaveErr)
		}
		return err
	}

	// Phase 5: Exit
	p.reportProgress(Progress{
		Phase:       PhaseExiting,
		CurrentPage: len(pages),
		TotalPages:  len(pages),
		Percentage:  97,
		ElapsedTime: time.Since(startTime),
	})

	if err := p.LeaveProgMode(ctx); err != nil {
		return fmt.Errorf("leave programming mode: %w", err)
	}

	bytesWritten := len(pages) * part.PageSize()
	p.reportProgress(Progress{
		Phase:        PhaseComplete,
		CurrentPage:  len(pages),
		TotalPages:   len(pages),
		Percentage:   100,
		BytesWritten: bytesWritten,
		ElapsedTime:  time.Since(startTime),
	})

	p.logInfo("programming complete",
		"part", part.Name,
		"pages", len(pages),
		"bytes", bytesWritten,
		"elapsed", time.Since(startTime).String(),
	)

	return nil
}

func (p *Programmer) programPages(ctx context.Context, pages []hexfile.Page, startTime time.Time) error {
	// Phase 2: Erase
	if p.config.EraseBeforeProgram {
		p.reportProgress(Progress{
			Phase:       PhaseErasing,
			TotalPages:  len(pages),
			Percentage:  2,
			ElapsedTime: time.Since(startTime),
		})
		if err := p.ChipErase(ctx); err != nil {
			return fmt.Errorf("chip erase: %w", err)
		}
	}

	// Phase 3: Program pages (5% to 75%, or 95% without verification)
	span := 90.0
	if p.config.VerifyAfterProgram {
		span = 70.0
	}

	bytesWritten := 0
	for i, pg := range pages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		if err := p.LoadAddress(ctx, pg.WordAddress()); err != nil {
			return fmt.Errorf("page %d (0x%05X): %w", i, pg.Address, err)
		}
		if err := p.ProgramPage(ctx, protocol.MemFlash, pg.Data); err != nil {
			return fmt.Errorf("page %d (0x%05X): %w", i, pg.Address, err)
		}

		bytesWritten += len(pg.Data)
		p.reportProgress(Progress{
			Phase:        PhaseProgramming,
			CurrentPage:  i + 1,
			TotalPages:   len(pages),
			Percentage:   5 + float64(i+1)/float64(len(pages))*span,
			BytesWritten: bytesWritten,
			ElapsedTime:  time.Since(startTime),
		})
	}

	if !p.config.VerifyAfterProgram {
		return nil
	}

	// Phase 4: Verify (75% to 95%)
	for i, pg := range pages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		if err := p.verifyPage(ctx, pg); err != nil {
			return fmt.Errorf("verify page %d: %w", i, err)
		}

		p.reportProgress(Progress{
			Phase:        PhaseVerifying,
			CurrentPage:  i + 1,
			TotalPages:   len(pages),
			Percentage:   75 + float64(i+1)/float64(len(pages))*20,
			BytesWritten: bytesWritten,
			ElapsedTime:  time.Since(startTime),
		})
	}
	return nil
}

// verifyPage reads a page back and compares it with the image.
func (p *Programmer) verifyPage(ctx context.Context, pg hexfile.Page) error {
	if err := p.LoadAddress(ctx, pg.WordAddress()); err != nil {
		return err
	}
	got, err := p.ReadPage(ctx, protocol.MemFlash, len(pg.Data))
	if err != nil {
		return err
	}
	if bytes.Equal(got, pg.Data) {
		return nil
	}
	for i := range pg.Data {
		if got[i] != pg.Data[i] {
			return &VerifyError{
				Address:  pg.Address + uint32(i),
				Expected: pg.Data[i],
				Actual:   got[i],
			}
		}
	}
	return nil
}

// Connect synchronizes with the programmer, sends the part parameters,
// enters programming mode and checks the device signature. On a signature
// mismatch the target is released again.
func (p *Programmer) Connect(ctx context.Context, part Part) (protocol.Signature, error) {
	if err := p.Sync(ctx); err != nil {
		return protocol.Signature{}, err
	}
	if err := p.SetDevice(ctx, part.Params); err != nil {
		return protocol.Signature{}, fmt.Errorf("set device: %w", err)
	}
	if err := p.EnterProgMode(ctx); err != nil {
		return protocol.Signature{}, fmt.Errorf("enter programming mode: %w", err)
	}

	sig, err := p.ReadSignature(ctx)
	if err != nil {
		return sig, fmt.Errorf("read signature: %w", err)
	}
	p.logDebug("device signature", "signature", sig.String(), "part", part.Name)

	if sig != part.Signature {
		if leaveErr := p.LeaveProgMode(ctx); leaveErr != nil {
			p.logError("leave programming mode", "error", leaveErr)
		}
		return sig, &SignatureMismatchError{
			Part:     part.Name,
			Expected: part.Signature,
			Actual:   sig,
		}
	}
	return sig, nil
}

// Sync sends Get Sync until the programmer answers, up to Retries extra
// attempts. A successful sync also clears the programmer's error counter.
func (p *Programmer) Sync(ctx context.Context) error {
	var err error
	for attempt := 0; attempt <= p.config.Retries; attempt++ {
		if _, err = p.command(ctx, "get sync", protocol.BuildGetSyncCmd(), 0); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		p.logDebug("sync attempt failed", "attempt", attempt+1, "error", err)
	}
	return fmt.Errorf("no sync after %d attempts: %w", p.config.Retries+1, err)
}

// GetSignOn returns the programmer's identification string.
func (p *Programmer) GetSignOn(ctx context.Context) (string, error) {
	data, err := p.command(ctx, "get sign on", protocol.BuildGetSignOnCmd(), len(protocol.SignOnMessage))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetParameter reads one of the programmer's parameters.
func (p *Programmer) GetParameter(ctx context.Context, parm byte) (byte, error) {
	data, err := p.command(ctx, "get parameter", protocol.BuildGetParameterCmd(parm), 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// SetDevice sends the device parameter block.
func (p *Programmer) SetDevice(ctx context.Context, params protocol.Parameters) error {
	_, err := p.command(ctx, "set device", protocol.BuildSetDeviceCmd(params), 0)
	return err
}

// SetDeviceExt sends the extended parameter block.
func (p *Programmer) SetDeviceExt(ctx context.Context, ext []byte) error {
	frame, err := protocol.BuildSetDeviceExtCmd(ext)
	if err != nil {
		return err
	}
	_, err = p.command(ctx, "set device ext", frame, 0)
	return err
}

// EnterProgMode resets the target into serial programming mode.
func (p *Programmer) EnterProgMode(ctx context.Context) error {
	_, err := p.command(ctx, "enter programming mode", protocol.BuildEnterProgModeCmd(), 0)
	return err
}

// LeaveProgMode releases the target.
func (p *Programmer) LeaveProgMode(ctx context.Context) error {
	_, err := p.command(ctx, "leave programming mode", protocol.BuildLeaveProgModeCmd(), 0)
	return err
}

// LoadAddress sets the word address used by the next page command.
func (p *Programmer) LoadAddress(ctx context.Context, addr uint16) error {
	_, err := p.command(ctx, "load address", protocol.BuildLoadAddressCmd(addr), 0)
	return err
}

// ProgramPage writes a block of flash or EEPROM at the loaded address.
func (p *Programmer) ProgramPage(ctx context.Context, memType byte, data []byte) error {
	frame, err := protocol.BuildProgramPageCmd(memType, data)
	if err != nil {
		return err
	}
	_, err = p.command(ctx, "program page", frame, 0)
	return err
}

// ReadPage reads length bytes of flash or EEPROM from the loaded address.
func (p *Programmer) ReadPage(ctx context.Context, memType byte, length int) ([]byte, error) {
	frame, err := protocol.BuildReadPageCmd(memType, length)
	if err != nil {
		return nil, err
	}
	return p.command(ctx, "read page", frame, length)
}

// Universal sends one raw serial programming instruction and returns the
// last byte clocked back from the target.
func (p *Programmer) Universal(ctx context.Context, instr [4]byte) (byte, error) {
	data, err := p.command(ctx, "universal", protocol.BuildUniversalCmd(instr), 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// ReadSignature reads the three device signature bytes.
func (p *Programmer) ReadSignature(ctx context.Context) (protocol.Signature, error) {
	var sig protocol.Signature
	data, err := p.command(ctx, "read signature", protocol.BuildReadSignCmd(), protocol.SignatureSize)
	if err != nil {
		return sig, err
	}
	copy(sig[:], data)
	return sig, nil
}

// ChipErase erases flash and EEPROM and waits for the erase to complete.
func (p *Programmer) ChipErase(ctx context.Context) error {
	if _, err := p.Universal(ctx, [4]byte{0xAC, 0x80, 0x00, 0x00}); err != nil {
		return err
	}

	timer := time.NewTimer(chipEraseDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ReadFuses reads the fuse and lock bytes.
func (p *Programmer) ReadFuses(ctx context.Context) (Fuses, error) {
	var f Fuses
	reads := []struct {
		dst   *byte
		instr [4]byte
	}{
		{&f.Low, [4]byte{0x50, 0x00, 0x00, 0x00}},
		{&f.High, [4]byte{0x58, 0x08, 0x00, 0x00}},
		{&f.Extended, [4]byte{0x50, 0x08, 0x00, 0x00}},
		{&f.Lock, [4]byte{0x58, 0x00, 0x00, 0x00}},
	}
	for _, r := range reads {
		b, err := p.Universal(ctx, r.instr)
		if err != nil {
			return f, err
		}
		*r.dst = b
	}
	return f, nil
}

// ReadFlash reads length bytes of flash from the even byte address addr.
func (p *Programmer) ReadFlash(ctx context.Context, addr uint32, length int) ([]byte, error) {
	return p.readMemory(ctx, protocol.MemFlash, addr, length)
}

// ReadEEPROM reads length bytes of EEPROM from the even byte address addr.
func (p *Programmer) ReadEEPROM(ctx context.Context, addr uint32, length int) ([]byte, error) {
	return p.readMemory(ctx, protocol.MemEEPROM, addr, length)
}

// readMemory reads in blocks, loading the word address before each block.
func (p *Programmer) readMemory(ctx context.Context, memType byte, addr uint32, length int) ([]byte, error) {
	if addr%2 != 0 {
		return nil, fmt.Errorf("address 0x%05X must be word aligned", addr)
	}

	out := make([]byte, 0, length)
	for len(out) < length {
		n := length - len(out)
		if n > readBlock {
			n = readBlock
		}

		at := addr + uint32(len(out))
		if err := p.LoadAddress(ctx, uint16(at/2)); err != nil {
			return out, fmt.Errorf("read 0x%05X: %w", at, err)
		}
		block, err := p.ReadPage(ctx, memType, n)
		if err != nil {
			return out, fmt.Errorf("read 0x%05X: %w", at, err)
		}
		out = append(out, block...)
	}
	return out, nil
}

// command writes one request and reads its reply carrying n result bytes.
func (p *Programmer) command(ctx context.Context, op string, frame []byte, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.device.Write(frame); err != nil {
		return nil, fmt.Errorf("%s: write command: %w", op, err)
	}

	r := &replyReader{
		ctx:      ctx,
		r:        p.device,
		deadline: time.Now().Add(p.config.ReadTimeout),
	}
	data, err := protocol.ReadReply(r, n)
	if err != nil {
		var re *protocol.ReplyError
		if errors.As(err, &re) {
			re.Operation = op
			return nil, re
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}

// replyReader turns zero-length reads, which serial ports return on a
// read timeout, into ErrTimeout once the deadline has passed.
type replyReader struct {
	ctx      context.Context
	r        io.Reader
	deadline time.Time
}

func (rr *replyReader) Read(b []byte) (int, error) {
	for {
		n, err := rr.r.Read(b)
		if n > 0 || err != nil {
			return n, err
		}
		if err := rr.ctx.Err(); err != nil {
			return 0, err
		}
		if time.Now().After(rr.deadline) {
			return 0, ErrTimeout
		}
	}
}

// reportProgress calls the progress callback if configured.
func (p *Programmer) reportProgress(progress Progress) {
	if p.config.ProgressCallback != nil {
		p.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (p *Programmer) logDebug(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (p *Programmer) logInfo(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (p *Programmer) logError(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Error(msg, keysAndValues...)
	}
}
