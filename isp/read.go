package isp

import "github.com/moffa90/go-avrisp/protocol"

// readPage streams length bytes of flash or EEPROM to the host. Nothing is
// read from the target unless the request is in sync.
func (d *Dispatcher) readPage() error {
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

	eop, err := d.getch()
	if err != nil {
		return err
	}
	if eop != protocol.CRCEOP {
		d.noSync()
		return nil
	}

	d.reply(protocol.RespInSync)
	result := byte(protocol.RespFailed)
	switch memType {
	case protocol.MemFlash:
		result = d.readFlashPage(length)
	case protocol.MemEEPROM:
		result = d.readEEPROMPage(length)
	default:
		d.logError("read page: unknown memory type", "mem_type", memType)
	}
	d.reply(result)
	return nil
}

// readFlashPage reads words from the session address, low byte first,
// advancing the address by one per word.
func (d *Dispatcher) readFlashPage(length int) byte {
	for x := 0; x < length; x += 2 {
		d.reply(d.transaction(instrReadLow, byte(d.s.Address>>8), byte(d.s.Address), 0))
		high := d.transaction(instrReadHigh, byte(d.s.Address>>8), byte(d.s.Address), 0)
		if x+1 < length {
			d.reply(high)
		}
		d.s.Address++
	}
	return protocol.RespOK
}

// readEEPROMPage reads bytes from byte address Address*2 without moving
// the session address.
func (d *Dispatcher) readEEPROMPage(length int) byte {
	start := int(d.s.Address) * 2
	for x := 0; x < length; x++ {
		addr := start + x
		d.reply(d.transaction(instrReadEEPROM, byte(addr>>8), byte(addr), 0xFF))
	}
	return protocol.RespOK
}

// readSignature replies with the three signature bytes.
func (d *Dispatcher) readSignature() error {
	eop, err := d.getch()
	if err != nil {
		return err
	}
	if eop != protocol.CRCEOP {
		d.noSync()
		return nil
	}

	d.reply(protocol.RespInSync)
	for i := byte(0); i < protocol.SignatureSize; i++ {
		d.reply(d.transaction(instrReadSig, 0x00, i, 0x00))
	}
	d.reply(protocol.RespOK)
	return nil
}
