package sweeper

import (
	"testing"
	"time"
)

func TestUnlockReleasesOnlyOwnMarker(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New(nil, nil, nil, nil, WithClock(func() time.Time { return now }))
	const key = "t1\x00ctx"

	first, ok := s.tryLock(key)
	if !ok {
		t.Fatal("first acquisition refused")
	}
	if _, ok := s.tryLock(key); ok {
		t.Fatal("live marker was stolen")
	}

	// Past the expiry a new attempt may steal the marker.
	now = now.Add(s.config.LockExpiry + time.Second)
	second, ok := s.tryLock(key)
	if !ok {
		t.Fatal("expired marker was not stolen")
	}

	// The original holder finishes late. Its release must not free the
	// stealer's marker.
	s.unlock(key, first)
	if _, ok := s.tryLock(key); ok {
		t.Fatal("stale release freed the stealer's marker")
	}

	s.unlock(key, second)
	if _, ok := s.tryLock(key); !ok {
		t.Fatal("owner release did not free the marker")
	}
}
