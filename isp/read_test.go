package isp

import (
	"bytes"
	"testing"

	"github.com/moffa90/go-avrisp/protocol"
	"github.com/moffa90/go-avrisp/sim"
)

func TestReadFlashPage(t *testing.T) {
	tests := []struct {
		name     string
		start    uint16
		length   int
		wantAddr uint16
	}{
		{"one word", 0, 2, 1},
		{"odd length", 4, 5, 7},
		{"full buffer", 0, 256, 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, sim.ATmega328P, [][]byte{
				enter,
				loadAddress(tt.start),
				readPage(protocol.MemFlash, tt.length),
			})
			image := pattern(1024)
			h.target.LoadFlash(0, image)

			got := h.run(t)
			start := int(tt.start) * 2
			want := replies(insyncOK, insyncOK,
				[]byte{protocol.RespInSync}, image[start:start+tt.length], []byte{protocol.RespOK})
			if !bytes.Equal(got, want) {
				t.Fatalf("replies = % X,\nwant % X", got, want)
			}
			if addr := h.d.Status().Address; addr != tt.wantAddr {
				t.Errorf("Address = %d, want %d", addr, tt.wantAddr)
			}
		})
	}
}

func TestReadEEPROMPage(t *testing.T) {
	h := newHarness(t, sim.ATmega328P, [][]byte{
		enter,
		loadAddress(0x0010),
		readPage(protocol.MemEEPROM, 4),
	})
	h.target.LoadEEPROM(0x20, []byte{0xDE, 0xAD, 0xBE, 0xEF})

	got := h.run(t)
	want := replies(insyncOK, insyncOK, []byte{protocol.RespInSync, 0xDE, 0xAD, 0xBE, 0xEF, protocol.RespOK})
	if !bytes.Equal(got, want) {
		t.Fatalf("replies = % X, want % X", got, want)
	}
	if addr := h.d.Status().Address; addr != 0x0010 {
		t.Errorf("Address = 0x%04X, want unchanged 0x0010", addr)
	}

	for _, tx := range h.target.Transactions()[1:] {
		if tx[0] != 0xA0 || tx[3] != 0xFF {
			t.Errorf("transaction = % X, want A0 hi lo FF", tx)
		}
	}
}

func TestReadPageErrors(t *testing.T) {
	tests := []struct {
		name       string
		frame      []byte
		want       []byte
		wantErrors uint32
	}{
		{
			name:  "unknown memory type",
			frame: readPage('X', 4),
			want:  []byte{protocol.RespInSync, protocol.RespFailed},
		},
		{
			name:       "missing EOP",
			frame:      []byte{protocol.CmdReadPage, 0x00, 0x04, protocol.MemFlash, 0x00},
			want:       []byte{protocol.RespNoSync},
			wantErrors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, sim.ATmega328P, [][]byte{enter, tt.frame})

			got := h.run(t)
			if want := replies(insyncOK, tt.want); !bytes.Equal(got, want) {
				t.Errorf("replies = % X, want % X", got, want)
			}
			if h.d.Errors() != tt.wantErrors {
				t.Errorf("Errors() = %d, want %d", h.d.Errors(), tt.wantErrors)
			}
			if n := len(h.target.Transactions()); n != 1 {
				t.Errorf("transactions = %d, want no reads", n)
			}
		})
	}
}

func TestReadSignature(t *testing.T) {
	tests := []struct {
		cfg  sim.Config
		want []byte
	}{
		{sim.ATmega328P, []byte{0x1E, 0x95, 0x0F}},
		{sim.ATtiny85, []byte{0x1E, 0x93, 0x0B}},
	}

	for _, tt := range tests {
		h := newHarness(t, tt.cfg, [][]byte{enter, frame(protocol.CmdReadSign)})

		got := h.run(t)
		want := replies(insyncOK, []byte{protocol.RespInSync}, tt.want, []byte{protocol.RespOK})
		if !bytes.Equal(got, want) {
			t.Errorf("replies = % X, want % X", got, want)
		}
	}
}
