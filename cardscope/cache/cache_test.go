package cache

import (
	"testing"
	"time"
)

func newTestCache(queryTTL, textTTL time.Duration) (*Cache, *time.Time) {
	now := time.Unix(1_700_000_000, 0)
	c := NewWithClock(16, queryTTL, textTTL, func() time.Time { return now })
	return c, &now
}

func TestGetExpiresLazily(t *testing.T) {
	c, now := newTestCache(100*time.Millisecond, time.Hour)

	c.Set("2023 topps chrome", []string{"listing"})
	if _, ok := c.Get("2023 topps chrome"); !ok {
		t.Fatal("expected fresh entry to hit")
	}

	*now = now.Add(150 * time.Millisecond)
	if _, ok := c.Get("2023 topps chrome"); ok {
		t.Fatal("expected expired entry to miss")
	}

	// Lazy eviction removed the key entirely.
	if c.Contains("2023 topps chrome") {
		t.Fatal("expected expired entry to be evicted")
	}
}

func TestContainsDoesNotCountStats(t *testing.T) {
	c, _ := newTestCache(time.Minute, time.Hour)
	c.Set("q", 1)

	c.Contains("q")
	c.Contains("absent")

	st := c.Statistics()
	if st.Hits != 0 || st.Misses != 0 {
		t.Errorf("stats after Contains = %+v, want zero hits and misses", st)
	}
}

func TestFingerprintNormalizes(t *testing.T) {
	a := Fingerprint("2023 TOPPS   CHROME\nJacob Wilson")
	b := Fingerprint("2023 topps chrome jacob wilson")
	if a != b {
		t.Errorf("fingerprints differ: %q vs %q", a, b)
	}
	if a == Fingerprint("2024 topps chrome jacob wilson") {
		t.Error("different text produced equal fingerprints")
	}
}

func TestTextTTL(t *testing.T) {
	c, now := newTestCache(time.Minute, 30*time.Minute)

	fp := Fingerprint("some scan text")
	if c.SeenText(fp) {
		t.Fatal("unmarked fingerprint reported seen")
	}
	c.MarkText(fp)
	if !c.SeenText(fp) {
		t.Fatal("marked fingerprint not seen")
	}

	*now = now.Add(31 * time.Minute)
	if c.SeenText(fp) {
		t.Fatal("expired fingerprint still seen")
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	c, now := newTestCache(time.Minute, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.MarkText(Fingerprint("text"))

	*now = now.Add(2 * time.Minute)
	c.Set("c", 3) // fresh, must survive

	if removed := c.Sweep(); removed != 3 {
		t.Errorf("Sweep removed %d entries, want 3", removed)
	}

	st := c.Statistics()
	if st.QueryEntries != 1 || st.TextEntries != 0 {
		t.Errorf("post-sweep stats = %+v", st)
	}
}

func TestStatsCountHitsAndMisses(t *testing.T) {
	c, _ := newTestCache(time.Minute, time.Hour)

	c.Set("q", "v")
	c.Get("q")
	c.Get("q")
	c.Get("absent")

	st := c.Statistics()
	if st.Hits != 2 || st.Misses != 1 {
		t.Errorf("stats = %+v, want 2 hits and 1 miss", st)
	}
}
