// Package sim simulates an AVR target on the serial programming bus.
//
// A Target implements isp.Bus: it decodes each 4-byte serial programming
// instruction and updates its flash, EEPROM and fuse memories the way a
// real device does, including page-buffered flash writes that can only
// clear bits until the chip is erased.
package sim

import (
	"errors"
	"fmt"
	"sync"
)

// Config describes the simulated device.
type Config struct {
	// Signature is returned by Read Signature Byte
	Signature [3]byte

	// FlashSize is the flash size in bytes
	FlashSize int

	// PageSize is the flash page size in bytes
	PageSize int

	// EEPROMSize is the EEPROM size in bytes
	EEPROMSize int
}

// ATmega328P is the configuration of an ATmega328P.
var ATmega328P = Config{
	Signature:  [3]byte{0x1E, 0x95, 0x0F},
	FlashSize:  32 * 1024,
	PageSize:   128,
	EEPROMSize: 1024,
}

// ATtiny85 is the configuration of an ATtiny85.
var ATtiny85 = Config{
	Signature:  [3]byte{0x1E, 0x93, 0x0B},
	FlashSize:  8 * 1024,
	PageSize:   64,
	EEPROMSize: 512,
}

// ErrBusClosed is returned by Tx before Begin or after End.
var ErrBusClosed = errors.New("sim: bus not open")

// Target is a simulated AVR device. It is safe for concurrent use.
type Target struct {
	mu sync.Mutex

	cfg     Config
	flash   []byte
	eeprom  []byte
	page    []byte
	fuses   [4]byte // low, high, extended, lock
	open    bool
	enabled bool

	log     [][4]byte
	commits []uint16
}

// NewTarget returns an erased target.
func NewTarget(cfg Config) *Target {
	if cfg.PageSize <= 0 || cfg.FlashSize%cfg.PageSize != 0 {
		panic(fmt.Sprintf("sim: invalid page size %d for flash size %d", cfg.PageSize, cfg.FlashSize))
	}

	t := &Target{
		cfg:    cfg,
		flash:  make([]byte, cfg.FlashSize),
		eeprom: make([]byte, cfg.EEPROMSize),
		page:   make([]byte, cfg.PageSize),
		fuses:  [4]byte{0x62, 0xD9, 0xFF, 0xFF},
	}
	fillFF(t.flash)
	fillFF(t.eeprom)
	fillFF(t.page)
	return t
}

// Begin implements isp.Bus.
func (t *Target) Begin() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.open = true
	return nil
}

// End implements isp.Bus. The target leaves programming mode.
func (t *Target) End() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.open = false
	t.enabled = false
	return nil
}

// Tx implements isp.Bus. w must be one 4-byte instruction.
func (t *Target) Tx(w, r []byte) error {
	if len(w) != 4 || len(r) != 4 {
		return fmt.Errorf("sim: instruction must be 4 bytes, got %d/%d", len(w), len(r))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.open {
		return ErrBusClosed
	}

	var instr [4]byte
	copy(instr[:], w)
	t.log = append(t.log, instr)

	// The device echoes each byte one position later.
	r[0], r[1], r[2] = 0x00, w[0], w[1]
	r[3] = t.execute(instr)
	return nil
}

func (t *Target) execute(w [4]byte) byte {
	if !t.enabled {
		if w[0] == 0xAC && w[1] == 0x53 {
			t.enabled = true
		}
		return 0xFF
	}

	word := int(w[1])<<8 | int(w[2])

	switch w[0] {
	case 0xAC:
		t.writeControl(w)
		return w[2]

	case 0x40, 0x48: // load program memory page, low/high byte
		wordsPerPage := t.cfg.PageSize / 2
		i := (word%wordsPerPage)*2 + int(w[0]>>3&1)
		t.page[i] = w[3]
		return 0

	case 0x4C: // write program memory page
		t.writePage(word)
		return 0

	case 0x20, 0x28: // read program memory, low/high byte
		i := word*2 + int(w[0]>>3&1)
		if i >= len(t.flash) {
			return 0xFF
		}
		return t.flash[i]

	case 0xC0: // write EEPROM memory
		if word < len(t.eeprom) {
			t.eeprom[word] = w[3]
		}
		return 0

	case 0xA0: // read EEPROM memory
		if word >= len(t.eeprom) {
			return 0xFF
		}
		return t.eeprom[word]

	case 0x30: // read signature byte
		if i := int(w[2] & 0x03); i < len(t.cfg.Signature) {
			return t.cfg.Signature[i]
		}
		return 0

	case 0x50: // read low (00) or extended (08) fuse
		if w[1] == 0x08 {
			return t.fuses[2]
		}
		return t.fuses[0]

	case 0x58: // read lock (00) or high (08) fuse
		if w[1] == 0x08 {
			return t.fuses[1]
		}
		return t.fuses[3]

	case 0xF0: // poll RDY/BSY
		return 0

	default:
		return 0
	}
}

func (t *Target) writeControl(w [4]byte) {
	switch w[1] {
	case 0x80: // chip erase
		fillFF(t.flash)
		fillFF(t.eeprom)
		t.fuses[3] = 0xFF
	case 0xA0:
		t.fuses[0] = w[3]
	case 0xA8:
		t.fuses[1] = w[3]
	case 0xA4:
		t.fuses[2] = w[3]
	case 0xE0:
		t.fuses[3] = w[3]
	}
}

// writePage programs the page buffer into the page containing word.
// Programming only clears bits.
func (t *Target) writePage(word int) {
	wordsPerPage := t.cfg.PageSize / 2
	base := (word / wordsPerPage) * t.cfg.PageSize
	if base+t.cfg.PageSize <= len(t.flash) {
		for i, b := range t.page {
			t.flash[base+i] &= b
		}
	}
	fillFF(t.page)
	t.commits = append(t.commits, uint16(word))
}

// Enabled reports whether the target accepted Programming Enable.
func (t *Target) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.enabled
}

// Transactions returns every instruction received so far.
func (t *Target) Transactions() [][4]byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([][4]byte(nil), t.log...)
}

// Commits returns the word address of every Write Program Memory Page.
func (t *Target) Commits() []uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]uint16(nil), t.commits...)
}

// ResetLog clears the recorded transactions and commits.
func (t *Target) ResetLog() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.log = nil
	t.commits = nil
}

// Flash returns a copy of the flash memory.
func (t *Target) Flash() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]byte(nil), t.flash...)
}

// EEPROM returns a copy of the EEPROM memory.
func (t *Target) EEPROM() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]byte(nil), t.eeprom...)
}

// LoadFlash overwrites flash at byte address addr, bypassing programming.
func (t *Target) LoadFlash(addr int, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	copy(t.flash[addr:], data)
}

// LoadEEPROM overwrites EEPROM at byte address addr.
func (t *Target) LoadEEPROM(addr int, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	copy(t.eeprom[addr:], data)
}

// Fuses returns the low, high, extended and lock bytes.
func (t *Target) Fuses() [4]byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.fuses
}

func fillFF(b []byte) {
	for i := range b {
		b[i] = 0xFF
	}
}

// Line is a simulated control line. It implements isp.Line.
type Line struct {
	mu     sync.Mutex
	high   bool
	driven bool
}

// Out drives the line.
func (l *Line) Out(high bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.high = high
	l.driven = true
	return nil
}

// Release stops driving the line.
func (l *Line) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.driven = false
	return nil
}

// State returns the last driven level and whether the line is driven.
func (l *Line) State() (high, driven bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.high, l.driven
}
