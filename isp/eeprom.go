package isp

import (
	"github.com/moffa90/go-avrisp/protocol"
	"github.com/moffa90/go-avrisp/timing"
)

// eepromWriteDelay is the self-timed write time of one EEPROM byte.
var eepromWriteDelay = timing.MillisToTicks(45)

// programEEPROM writes an EEPROM block and replies after the framing check.
func (d *Dispatcher) programEEPROM(length int) error {
	result, err := d.writeEEPROM(length)
	if err != nil {
		return err
	}
	if result == protocol.RespFailed {
		return d.failedReply()
	}
	return d.resultReply(result)
}

// writeEEPROM writes length bytes from the host starting at byte address
// Address*2, in chunks of at most EEChunk bytes. A block larger than the
// negotiated EEPROM is drained from the host without touching the target.
// The session address is not advanced.
func (d *Dispatcher) writeEEPROM(length int) (byte, error) {
	start := int(d.s.Address) * 2
	remaining := length

	if length > int(d.s.Params.EEPROMSize) {
		d.logError("eeprom block exceeds device",
			"length", length,
			"eeprom_size", d.s.Params.EEPROMSize,
		)
		if err := d.drain(length); err != nil {
			return 0, err
		}
		return protocol.RespFailed, nil
	}

	for remaining > EEChunk {
		if err := d.writeEEPROMChunk(start, EEChunk); err != nil {
			return 0, err
		}
		start += EEChunk
		remaining -= EEChunk
	}

	if err := d.writeEEPROMChunk(start, remaining); err != nil {
		return 0, err
	}
	return protocol.RespOK, nil
}

// writeEEPROMChunk buffers length bytes and writes them one byte at a time
// from byte address start.
func (d *Dispatcher) writeEEPROMChunk(start, length int) error {
	if err := d.fill(length); err != nil {
		return err
	}
	d.progLamp(false)

	for x := 0; x < length; x++ {
		addr := start + x
		d.transaction(instrWriteEEPROM, byte(addr>>8), byte(addr), d.s.Buffer[x])
		d.delay(eepromWriteDelay)
	}

	d.progLamp(true)
	d.logDebug("eeprom chunk written", "start", start, "length", length)
	return nil
}
