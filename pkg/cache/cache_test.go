package cache

import (
	"testing"
	"time"
)

func TestSetGetDelete(t *testing.T) {
	c := NewCache(time.Minute)
	defer c.Stop()

	c.Set("device:a", 1)
	if v, ok := c.Get("device:a"); !ok || v.(int) != 1 {
		t.Fatalf("Get = %v, %v; want 1, true", v, ok)
	}

	c.Delete("device:a")
	if _, ok := c.Get("device:a"); ok {
		t.Fatal("deleted key still present")
	}
}

func TestGetHidesExpiredEntries(t *testing.T) {
	c := NewCache(10 * time.Millisecond)
	defer c.Stop()

	c.Set("device:a", 1)
	time.Sleep(20 * time.Millisecond)

	// The janitor may not have run yet; Get must still miss.
	if _, ok := c.Get("device:a"); ok {
		t.Fatal("expired entry served")
	}
}

func TestDeletePrefix(t *testing.T) {
	c := NewCache(time.Minute)
	defer c.Stop()

	c.Set("device:a", 1)
	c.Set("device:a:commands", 2)
	c.Set("device:b", 3)

	c.DeletePrefix("device:a")

	if _, ok := c.Get("device:a:commands"); ok {
		t.Fatal("prefixed key survived DeletePrefix")
	}
	if _, ok := c.Get("device:b"); !ok {
		t.Fatal("unrelated key dropped by DeletePrefix")
	}
}

func TestSetRefreshesTTL(t *testing.T) {
	c := NewCache(30 * time.Millisecond)
	defer c.Stop()

	c.Set("device:a", 1)
	time.Sleep(20 * time.Millisecond)
	c.Set("device:a", 2)
	time.Sleep(20 * time.Millisecond)

	v, ok := c.Get("device:a")
	if !ok {
		t.Fatal("rewritten entry expired on the old deadline")
	}
	if v.(int) != 2 {
		t.Fatalf("value = %v, want 2", v)
	}
}
