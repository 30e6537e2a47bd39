package controller

import (
	"context"
	"slices"
	"time"
)

// DefaultPortRefresh is how often the device list is re-queried
const DefaultPortRefresh = time.Second

// ReconcileSelection keeps prev when it is still present, otherwise falls back
// to the first port, or "" when none are present.
func ReconcileSelection(prev string, ports []string) string {
	if prev != "" && slices.Contains(ports, prev) {
		return prev
	}
	if len(ports) > 0 {
		return ports[0]
	}
	return ""
}

// WatchPorts polls lister every interval until ctx ends, calling fn with the
// first list and again whenever the list changes. Listing errors are passed
// to onError when it is non-nil and the previous list is kept.
func WatchPorts(ctx context.Context, interval time.Duration, lister func() ([]string, error), fn func(ports []string), onError func(err error)) {
	if interval <= 0 {
		interval = DefaultPortRefresh
	}

	var last []string
	first := true
	poll := func() {
		ports, err := lister()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if first || !slices.Equal(ports, last) {
			first = false
			last = slices.Clone(ports)
			fn(ports)
		}
	}

	poll()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}
