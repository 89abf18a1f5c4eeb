package protocol

import (
	"encoding/binary"
	"fmt"
)

// DecodeParameters parses a CmdSetDevice payload.
//
// Layout (ParametersSize bytes):
//
//	[0] device code    [5] self-timed   [10..11] EEPROM poll (BE)
//	[1] revision       [6] lock bytes   [12..13] page size   (BE)
//	[2] prog type      [7] fuse bytes   [14..15] EEPROM size (BE)
//	[3] par mode       [8] flash poll   [16..19] flash size  (BE)
//	[4] polling        [9] flash poll (second byte, ignored)
func DecodeParameters(data []byte) (Parameters, error) {
	if len(data) != ParametersSize {
		return Parameters{}, fmt.Errorf("parameter block must be exactly %d bytes, got %d", ParametersSize, len(data))
	}

	return Parameters{
		DeviceCode: data[0],
		Revision:   data[1],
		ProgType:   data[2],
		ParMode:    data[3],
		Polling:    data[4],
		SelfTimed:  data[5],
		LockBytes:  data[6],
		FuseBytes:  data[7],
		FlashPoll:  data[8],
		EEPROMPoll: binary.BigEndian.Uint16(data[10:12]),
		PageSize:   binary.BigEndian.Uint16(data[12:14]),
		EEPROMSize: binary.BigEndian.Uint16(data[14:16]),
		FlashSize:  binary.BigEndian.Uint32(data[16:20]),
	}, nil
}

// Encode returns the CmdSetDevice payload for p.
// The duplicate flash poll byte at offset 9 is set to FlashPoll.
func (p Parameters) Encode() []byte {
	data := make([]byte, ParametersSize)
	data[0] = p.DeviceCode
	data[1] = p.Revision
	data[2] = p.ProgType
	data[3] = p.ParMode
	data[4] = p.Polling
	data[5] = p.SelfTimed
	data[6] = p.LockBytes
	data[7] = p.FuseBytes
	data[8] = p.FlashPoll
	data[9] = p.FlashPoll
	binary.BigEndian.PutUint16(data[10:12], p.EEPROMPoll)
	binary.BigEndian.PutUint16(data[12:14], p.PageSize)
	binary.BigEndian.PutUint16(data[14:16], p.EEPROMSize)
	binary.BigEndian.PutUint32(data[16:20], p.FlashSize)
	return data
}
