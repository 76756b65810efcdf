package cache

import (
	"testing"
	"time"
)

func TestEntryExpiry(t *testing.T) {
	fresh := NewEntry([]byte(`{"results": []}`), 200, time.Hour)
	if fresh.IsExpired() {
		t.Error("Fresh entry reports expired")
	}
	if ttl := fresh.TTL(); ttl <= 0 || ttl > time.Hour {
		t.Errorf("TTL = %v, want (0, 1h]", ttl)
	}

	stale := &Entry{
		Body:    []byte(`{}`),
		Expires: time.Now().Add(-time.Minute),
	}
	if !stale.IsExpired() {
		t.Error("Stale entry reports fresh")
	}
	if ttl := stale.TTL(); ttl != 0 {
		t.Errorf("Stale TTL = %v, want 0", ttl)
	}
}

func TestNewEntry(t *testing.T) {
	body := []byte(`{"results": [{"a": 1}]}`)
	entry := NewEntry(body, 200, 30*time.Minute)

	if string(entry.Body) != string(body) {
		t.Error("Body not preserved")
	}
	if entry.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", entry.StatusCode)
	}
	if entry.CachedAt.IsZero() {
		t.Error("CachedAt not set")
	}
	if !entry.Expires.After(entry.CachedAt) {
		t.Error("Expires must be after CachedAt")
	}
}
