package timing

import (
	"sync"
	"testing"
	"time"
)

func TestConversions(t *testing.T) {
	tests := []struct {
		name string
		got  uint64
		want uint64
	}{
		{"100us", MicrosToTicks(100), 1600},
		{"1ms", MillisToTicks(1), 16000},
		{"20ms", MillisToTicks(20), 320000},
		{"45ms", MillisToTicks(45), 720000},
		{"50ms", MillisToTicks(50), 800000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %d ticks, want %d", tt.got, tt.want)
			}
		})
	}

	if d := TicksToDuration(MillisToTicks(20)); d != 20*time.Millisecond {
		t.Errorf("TicksToDuration = %v, want 20ms", d)
	}
}

// stepCounter is a 16-bit hardware counter that advances on every read.
type stepCounter struct {
	value uint16
	step  uint16
}

func (c *stepCounter) read() uint16 {
	c.value += c.step
	return c.value
}

func TestExtenderWrap(t *testing.T) {
	hw := &stepCounter{value: 0xFF00, step: 0x80}
	e := NewExtender(hw.read)

	var prev uint64
	for i := 0; i < 10; i++ {
		now := e.Ticks()
		if now <= prev && i > 0 {
			t.Fatalf("snapshot %d: ticks went from %d to %d", i, prev, now)
		}
		if now != uint64(i+1)*0x80 {
			t.Errorf("snapshot %d: ticks = %d, want %d", i, now, uint64(i+1)*0x80)
		}
		prev = now
	}
}

func TestExtenderDelay(t *testing.T) {
	hw := &stepCounter{step: 100}
	e := NewExtender(hw.read)

	start := e.Ticks()
	e.Delay(1000)
	if elapsed := e.Ticks() - start; elapsed < 1000 {
		t.Errorf("Delay returned after %d ticks, want at least 1000", elapsed)
	}
}

func TestExtenderConcurrentSnapshots(t *testing.T) {
	var mu sync.Mutex
	hw := &stepCounter{step: 7}
	e := NewExtender(func() uint16 {
		mu.Lock()
		defer mu.Unlock()
		return hw.read()
	})

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var prev uint64
			for i := 0; i < 1000; i++ {
				now := e.Ticks()
				if now < prev {
					t.Errorf("ticks went backwards: %d -> %d", prev, now)
					return
				}
				prev = now
			}
		}()
	}
	wg.Wait()
}

func TestSystemClockDelay(t *testing.T) {
	c := NewSystemClock()

	start := time.Now()
	c.Delay(MillisToTicks(2))
	if elapsed := time.Since(start); elapsed < 2*time.Millisecond {
		t.Errorf("Delay returned after %v, want at least 2ms", elapsed)
	}
}

func TestSystemClockLongUptime(t *testing.T) {
	uptime := 20 * 24 * time.Hour
	c := &SystemClock{start: time.Now().Add(-uptime)}

	want := MillisToTicks(uint64(uptime / time.Millisecond))
	if d := TicksToDuration(want); d != uptime {
		t.Errorf("TicksToDuration = %v, want %v", d, uptime)
	}

	got := c.Ticks()
	if got < want {
		t.Errorf("Ticks() after %s = %d, want at least %d", uptime, got, want)
	}
	if got > want+MillisToTicks(60000) {
		t.Errorf("Ticks() after %s = %d, far beyond %d", uptime, got, want)
	}
}
