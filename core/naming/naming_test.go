package naming

import (
	"sync"
	"testing"
	"time"
)

func TestCanonical(t *testing.T) {
	ts := time.Date(2023, 1, 23, 14, 30, 5, 0, time.UTC)
	if got := Canonical(ts, "206cc7d9"); got != "2023-01-23_1430_206cc7d9" {
		t.Fatalf("Canonical = %q", got)
	}
}

func TestCanonicalZeroPadding(t *testing.T) {
	ts := time.Date(2024, 7, 3, 8, 5, 0, 0, time.UTC)
	if got := Canonical(ts, "00000000"); got != "2024-07-03_0805_00000000" {
		t.Fatalf("Canonical = %q", got)
	}
}

func TestRegistryClaim(t *testing.T) {
	r := NewRegistry()

	name, collided := r.Claim("2023-01-23_1430_206cc7d9")
	if collided || name != "2023-01-23_1430_206cc7d9" {
		t.Fatalf("first claim: name=%q collided=%v", name, collided)
	}

	name, collided = r.Claim("2023-01-23_1430_206cc7d9")
	if !collided || name != "2023-01-23_1430_206cc7d9_1" {
		t.Fatalf("second claim: name=%q collided=%v", name, collided)
	}

	name, collided = r.Claim("2023-01-23_1430_206cc7d9")
	if !collided || name != "2023-01-23_1430_206cc7d9_2" {
		t.Fatalf("third claim: name=%q collided=%v", name, collided)
	}
}

func TestRegistryClaimConcurrent(t *testing.T) {
	r := NewRegistry()
	const n = 64

	var mu sync.Mutex
	seen := make(map[string]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, _ := r.Claim("base")
			mu.Lock()
			defer mu.Unlock()
			if seen[name] {
				t.Errorf("name %q handed out twice", name)
			}
			seen[name] = true
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("got %d distinct names, want %d", len(seen), n)
	}
}
