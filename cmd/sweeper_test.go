package main

import (
	"testing"
	"time"
)

func TestNextMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+6", 6*60*60)
	now := time.Date(2026, time.March, 14, 23, 59, 30, 0, loc)
	next := nextMidnight(now)

	want := time.Date(2026, time.March, 15, 0, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
	if !next.After(now) {
		t.Fatal("next midnight must be in the future")
	}

	// Just after midnight the next run is still almost a full day away.
	now = time.Date(2026, time.March, 15, 0, 0, 1, 0, loc)
	next = nextMidnight(now)
	if next.Sub(now) < 23*time.Hour {
		t.Fatalf("expected nearly a day until the next run, got %v", next.Sub(now))
	}
}
