package protocol

import (
	"bytes"
	"strings"
	"testing"
)

func TestSimpleCommands(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		want  []byte
	}{
		{"get sync", BuildGetSyncCmd(), []byte{0x30, 0x20}},
		{"get sign on", BuildGetSignOnCmd(), []byte{0x31, 0x20}},
		{"get parameter", BuildGetParameterCmd(ParmSWMinor), []byte{0x41, 0x82, 0x20}},
		{"enter progmode", BuildEnterProgModeCmd(), []byte{0x50, 0x20}},
		{"leave progmode", BuildLeaveProgModeCmd(), []byte{0x51, 0x20}},
		{"read signature", BuildReadSignCmd(), []byte{0x75, 0x20}},
		{"universal", BuildUniversalCmd([4]byte{0xAC, 0x80, 0x00, 0x00}), []byte{0x56, 0xAC, 0x80, 0x00, 0x00, 0x20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !bytes.Equal(tt.frame, tt.want) {
				t.Errorf("frame = % X, want % X", tt.frame, tt.want)
			}
		})
	}
}

func TestBuildLoadAddressCmd(t *testing.T) {
	tests := []struct {
		addr uint16
		want []byte
	}{
		{0x0000, []byte{0x55, 0x00, 0x00, 0x20}},
		{0x0010, []byte{0x55, 0x10, 0x00, 0x20}},
		{0x1234, []byte{0x55, 0x34, 0x12, 0x20}},
	}

	for _, tt := range tests {
		frame := BuildLoadAddressCmd(tt.addr)
		if !bytes.Equal(frame, tt.want) {
			t.Errorf("addr 0x%04X: frame = % X, want % X", tt.addr, frame, tt.want)
		}
	}
}

func TestBuildSetDeviceCmd(t *testing.T) {
	frame := BuildSetDeviceCmd(Parameters{DeviceCode: 0x86, PageSize: 128})

	if len(frame) != ParametersSize+2 {
		t.Fatalf("frame length = %d, want %d", len(frame), ParametersSize+2)
	}
	if frame[0] != CmdSetDevice {
		t.Errorf("command = 0x%02X, want 0x%02X", frame[0], CmdSetDevice)
	}
	if frame[1] != 0x86 {
		t.Errorf("device code = 0x%02X, want 0x86", frame[1])
	}
	if frame[len(frame)-1] != CRCEOP {
		t.Errorf("last byte = 0x%02X, want CRC_EOP", frame[len(frame)-1])
	}
}

func TestBuildSetDeviceExtCmd(t *testing.T) {
	frame, err := BuildSetDeviceExtCmd([]byte{5, 4, 0xD7, 0xC2, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(frame, []byte{0x45, 5, 4, 0xD7, 0xC2, 0, 0x20}) {
		t.Errorf("frame = % X", frame)
	}

	if _, err := BuildSetDeviceExtCmd([]byte{1, 2}); err == nil {
		t.Error("expected error for short ext block")
	}
}

func TestBuildProgramPageCmd(t *testing.T) {
	tests := []struct {
		name    string
		memType byte
		data    []byte
		wantErr string
	}{
		{name: "flash page", memType: MemFlash, data: bytes.Repeat([]byte{0xAA, 0x55}, 64)},
		{name: "eeprom block", memType: MemEEPROM, data: []byte{1, 2, 3}},
		{name: "full buffer", memType: MemFlash, data: make([]byte, MaxPageSize)},
		{name: "empty", memType: MemFlash, data: nil, wantErr: "cannot be empty"},
		{name: "too long", memType: MemFlash, data: make([]byte, MaxPageSize+1), wantErr: "exceeds maximum"},
		{name: "bad memory type", memType: 'X', data: []byte{1}, wantErr: "invalid memory type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := BuildProgramPageCmd(tt.memType, tt.data)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			n := len(tt.data)
			if frame[0] != CmdProgPage {
				t.Errorf("command = 0x%02X", frame[0])
			}
			if frame[1] != byte(n>>8) || frame[2] != byte(n) {
				t.Errorf("length bytes = %02X %02X, want big-endian %d", frame[1], frame[2], n)
			}
			if frame[3] != tt.memType {
				t.Errorf("memory type = %c, want %c", frame[3], tt.memType)
			}
			if !bytes.Equal(frame[4:4+n], tt.data) {
				t.Error("payload mismatch")
			}
			if frame[len(frame)-1] != CRCEOP {
				t.Errorf("last byte = 0x%02X, want CRC_EOP", frame[len(frame)-1])
			}
		})
	}
}

func TestBuildReadPageCmd(t *testing.T) {
	frame, err := BuildReadPageCmd(MemFlash, 256)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(frame, []byte{0x74, 0x01, 0x00, 'F', 0x20}) {
		t.Errorf("frame = % X", frame)
	}

	if _, err := BuildReadPageCmd(MemEEPROM, 0); err == nil {
		t.Error("expected error for zero length")
	}
	if _, err := BuildReadPageCmd('Z', 4); err == nil {
		t.Error("expected error for bad memory type")
	}
}
