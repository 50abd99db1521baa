//go:build linux
// +build linux

package wifi_test

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/nlquery/wifi"
)

func TestIntegrationLinuxConcurrent(t *testing.T) {
	const (
		workers    = 4
		iterations = 1000
	)

	c := integrationClient(t)
	ifis, err := c.Interfaces()
	if err != nil {
		t.Fatalf("failed to retrieve interfaces: %v", err)
	}
	if len(ifis) == 0 {
		t.Skip("skipping, found no WiFi interfaces")
	}

	var indices []int32
	for _, ifi := range ifis {
		if !isStation(ifi) {
			continue
		}

		indices = append(indices, *ifi.Index)
	}

	t.Logf("workers: %d, iterations: %d, interfaces: %v",
		workers, iterations, indices)

	var wg sync.WaitGroup
	wg.Add(workers)
	defer wg.Wait()

	// Each worker owns its own Client: a Client serves one query at a time.
	for i := 0; i < workers; i++ {
		go func(worker int) {
			defer wg.Done()
			execN(t, iterations, indices, worker)
		}(i)
	}
}

func execN(t *testing.T, n int, expect []int32, worker int) {
	c := integrationClient(t)

	seen := make(map[int32]int)
	for i := 0; i < n; i++ {
		ifis, err := c.Interfaces()
		if err != nil {
			panicf("[worker %d; iteration %d] failed to retrieve interfaces: %v", worker, i, err)
		}

		for _, ifi := range ifis {
			if !isStation(ifi) {
				continue
			}

			if _, err := c.StationInfo(*ifi.Index); err != nil {
				panicf("[worker %d; iteration %d] failed to retrieve station info for interface %d: %v", worker, i, *ifi.Index, err)
			}

			seen[*ifi.Index]++
		}
	}

	for _, e := range expect {
		nn, ok := seen[e]
		if !ok {
			panicf("[worker %d] did not find interface %d during test", worker, e)
		}
		if nn != n {
			panicf("[worker %d] wanted to find interface %d %d times, found %d", worker, e, n, nn)
		}
	}
}

func isStation(ifi *wifi.Interface) bool {
	return ifi.Index != nil &&
		len(ifi.Name) > 0 &&
		ifi.Type != nil &&
		*ifi.Type == wifi.InterfaceTypeStation
}

func integrationClient(t *testing.T) *wifi.Client {
	t.Helper()

	c, err := wifi.New()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			t.Skipf("skipping, nl80211 not found: %v", err)
		}

		t.Fatalf("failed to create client: %v", err)
	}

	t.Cleanup(func() { _ = c.Close() })
	return c
}

func panicf(format string, a ...interface{}) {
	panic(fmt.Sprintf(format, a...))
}
