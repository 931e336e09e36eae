package sim

import (
	"testing"
	"time"
)

func TestVerticalSpeedBuffer(t *testing.T) {
	buf := NewVerticalSpeedBuffer(5 * time.Second)

	// 1. Initial state
	if vs := buf.Update(0, 1000); vs != 0 {
		t.Errorf("Expected 0 VS for first sample, got %.2f", vs)
	}

	// 2. Constant altitude
	if vs := buf.Update(time.Second, 1000); vs != 0 {
		t.Errorf("Expected 0 VS for constant altitude, got %.2f", vs)
	}

	// 3. 100ft in 6s -> 1000 fpm
	buf.Reset()
	buf.Update(0, 1000)
	vs := buf.Update(6*time.Second, 1100)
	if vs < 999 || vs > 1001 {
		t.Errorf("Expected ~1000 fpm, got %.2f", vs)
	}

	// 4. Window keeps the first sample while only one newer sample would remain.
	// samples: [0, 1000], [6, 1100], [7, 1090]. dt=7, da=90 -> 771.43 fpm
	vs = buf.Update(7*time.Second, 1090)
	if vs < 770 || vs > 772 {
		t.Errorf("Expected ~771 fpm, got %.2f", vs)
	}

	// 5. Old samples fall out: [6, 1100], [7, 1090], [12, 1190] -> 90ft over 6s
	vs = buf.Update(12*time.Second, 1190)
	if vs < 899 || vs > 901 {
		t.Errorf("Expected ~900 fpm after trimming, got %.2f", vs)
	}
}

func TestVerticalSpeedBuffer_SameTimestamp(t *testing.T) {
	buf := NewVerticalSpeedBuffer(5 * time.Second)
	buf.Update(time.Second, 1000)
	if vs := buf.Update(time.Second, 2000); vs != 0 {
		t.Errorf("Expected 0 VS for zero dt, got %.2f", vs)
	}
}
