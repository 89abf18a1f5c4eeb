package client

import (
	"sort"
	"strings"

	"github.com/moffa90/go-avrisp/protocol"
)

// Part describes a target device.
type Part struct {
	// Name is the part name, e.g. "atmega328p"
	Name string

	// Signature is the expected device signature
	Signature protocol.Signature

	// Params is the parameter block sent with Set Device
	Params protocol.Parameters
}

// PageSize returns the flash page size in bytes.
func (p Part) PageSize() int {
	return int(p.Params.PageSize)
}

func avrParams(devCode byte, pageSize, eepromSize uint16, flashSize uint32, fuseBytes byte) protocol.Parameters {
	return protocol.Parameters{
		DeviceCode: devCode,
		ProgType:   0x00,
		ParMode:    0x01,
		Polling:    0x01,
		SelfTimed:  0x01,
		LockBytes:  0x01,
		FuseBytes:  fuseBytes,
		FlashPoll:  0xFF,
		EEPROMPoll: 0xFFFF,
		PageSize:   pageSize,
		EEPROMSize: eepromSize,
		FlashSize:  flashSize,
	}
}

var parts = map[string]Part{
	"atmega328p": {
		Name:      "atmega328p",
		Signature: protocol.Signature{0x1E, 0x95, 0x0F},
		Params:    avrParams(0x86, 128, 1024, 32768, 3),
	},
	"atmega168": {
		Name:      "atmega168",
		Signature: protocol.Signature{0x1E, 0x94, 0x06},
		Params:    avrParams(0x86, 128, 512, 16384, 3),
	},
	"atmega8": {
		Name:      "atmega8",
		Signature: protocol.Signature{0x1E, 0x93, 0x07},
		Params:    avrParams(0x70, 64, 512, 8192, 2),
	},
	"attiny85": {
		Name:      "attiny85",
		Signature: protocol.Signature{0x1E, 0x93, 0x0B},
		Params:    avrParams(0x20, 64, 512, 8192, 3),
	},
	"attiny45": {
		Name:      "attiny45",
		Signature: protocol.Signature{0x1E, 0x92, 0x06},
		Params:    avrParams(0x20, 64, 256, 4096, 3),
	},
}

// LookupPart returns the part with the given name, ignoring case.
func LookupPart(name string) (Part, error) {
	p, ok := parts[strings.ToLower(name)]
	if !ok {
		return Part{}, &UnknownPartError{Name: name}
	}
	return p, nil
}

// PartBySignature returns the part with the given signature.
func PartBySignature(sig protocol.Signature) (Part, bool) {
	for _, p := range parts {
		if p.Signature == sig {
			return p, true
		}
	}
	return Part{}, false
}

// PartNames returns the known part names in sorted order.
func PartNames() []string {
	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
