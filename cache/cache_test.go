package cache

import (
	"testing"
	"time"

	"github.com/storeforge/prodscrape/models"
)

func TestCache_HitWithinMaxAge(t *testing.T) {
	c := New(10)
	key := Key("https://shop.example.com/p/1", 10)
	c.Set(key, &models.ScrapeResponse{Success: true, Transport: "http"})

	resp, hit := c.Get(key, 60_000)
	if !hit {
		t.Fatal("expected a cache hit")
	}
	if !resp.Success || resp.Transport != "http" {
		t.Errorf("got %+v", resp)
	}
}

func TestCache_MissWhenMaxAgeDisabled(t *testing.T) {
	c := New(10)
	key := Key("https://shop.example.com/p/1", 10)
	c.Set(key, &models.ScrapeResponse{Success: true})

	if _, hit := c.Get(key, 0); hit {
		t.Error("maxAge 0 must bypass the cache")
	}
}

func TestCache_MissWhenEntryTooOld(t *testing.T) {
	c := New(10)
	key := Key("https://shop.example.com/p/1", 10)
	c.Set(key, &models.ScrapeResponse{Success: true})

	time.Sleep(5 * time.Millisecond)
	if _, hit := c.Get(key, 1); hit {
		t.Error("entry older than maxAge must miss")
	}
}

func TestCache_EvictsAtCapacity(t *testing.T) {
	c := New(2)
	c.Set(Key("https://a.example.com", 10), &models.ScrapeResponse{})
	c.Set(Key("https://b.example.com", 10), &models.ScrapeResponse{})
	c.Set(Key("https://c.example.com", 10), &models.ScrapeResponse{})

	c.mu.RLock()
	n := len(c.store)
	c.mu.RUnlock()
	if n != 2 {
		t.Errorf("stored entries = %d, want capacity 2", n)
	}
}

func TestKey_VariesWithRequestKnobs(t *testing.T) {
	a := Key("https://shop.example.com/p/1", 10)
	b := Key("https://shop.example.com/p/1", 5)
	d := Key("https://shop.example.com/p/2", 10)
	if a == b || a == d {
		t.Error("keys must differ per URL and per image limit")
	}
	if a != Key("https://shop.example.com/p/1", 10) {
		t.Error("key is not deterministic")
	}
}
