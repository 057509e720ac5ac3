package ristretto_test

import (
	"bytes"
	"testing"
	"time"

	cache "github.com/becomeliminal/strata-go-sdk/state/cache/ristretto"
)

func TestSetGetDelete(t *testing.T) {
	c, err := cache.New()
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer c.Close()

	c.Set("state:t1:", []byte(`{"tenant_id":"t1"}`), time.Minute)
	c.Wait()

	got, ok := c.Get("state:t1:")
	if !ok {
		t.Fatal("want hit after set")
	}
	if !bytes.Equal(got, []byte(`{"tenant_id":"t1"}`)) {
		t.Errorf("got %q", got)
	}

	c.Delete("state:t1:")
	c.Wait()
	if _, ok := c.Get("state:t1:"); ok {
		t.Error("want miss after delete")
	}
}

func TestTTLExpiry(t *testing.T) {
	c, err := cache.New()
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer c.Close()

	c.Set("state:t1:", []byte("v"), 20*time.Millisecond)
	c.Wait()

	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get("state:t1:"); ok {
		t.Error("want miss after TTL expiry")
	}
}
