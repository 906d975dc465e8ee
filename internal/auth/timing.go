package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingDelay pads failed credential checks so an unknown email and a wrong
// password take about as long.
type TimingDelay struct {
	base   time.Duration
	random time.Duration
}

func NewTimingDelay(base, random time.Duration) *TimingDelay {
	return &TimingDelay{base: base, random: random}
}

// cryptoRandIntn returns a number in [0, max) from crypto/rand
func cryptoRandIntn(max int64) (int64, error) {
	if max <= 0 {
		return 0, nil
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b[:]) % uint64(max)), nil
}

// Delay returns base plus a random jitter below random
func (td *TimingDelay) Delay() time.Duration {
	d := td.base
	if td.random > 0 {
		if n, err := cryptoRandIntn(int64(td.random)); err == nil {
			d += time.Duration(n)
		}
	}
	return d
}

// Wait sleeps for Delay or until ctx is done
func (td *TimingDelay) Wait(ctx context.Context) {
	if td == nil {
		return
	}
	d := td.Delay()
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
