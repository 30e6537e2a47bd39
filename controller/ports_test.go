package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serialtool/serial"
)

func TestReconcileSelection(t *testing.T) {
	tests := []struct {
		name  string
		prev  string
		ports []string
		want  string
	}{
		{"keeps present selection", "COM3", []string{"COM1", "COM3"}, "COM3"},
		{"falls back to first", "COM9", []string{"COM1", "COM3"}, "COM1"},
		{"nothing selected yet", "", []string{"COM1"}, "COM1"},
		{"no ports", "COM3", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReconcileSelection(tt.prev, tt.ports))
		})
	}
}

func TestWatchPorts_ReportsChanges(t *testing.T) {
	bus := serial.NewMockBus("COM1")

	var mu sync.Mutex
	var seen [][]string
	snapshot := func() [][]string {
		mu.Lock()
		defer mu.Unlock()
		return append([][]string(nil), seen...)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		WatchPorts(ctx, 5*time.Millisecond, bus.List, func(ports []string) {
			mu.Lock()
			seen = append(seen, ports)
			mu.Unlock()
		}, nil)
	}()

	require.Eventually(t, func() bool { return len(snapshot()) == 1 }, time.Second, time.Millisecond)

	bus.AddDevice("COM2")
	require.Eventually(t, func() bool { return len(snapshot()) == 2 }, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, [][]string{{"COM1"}, {"COM1", "COM2"}}, snapshot())
}

func TestWatchPorts_ReportsErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errs := make(chan error, 1)
	go WatchPorts(ctx, time.Hour, func() ([]string, error) {
		return nil, errors.New("enumeration failed")
	}, func([]string) {
		t.Error("unexpected port list")
	}, func(err error) {
		errs <- err
	})

	select {
	case err := <-errs:
		assert.EqualError(t, err, "enumeration failed")
	case <-time.After(time.Second):
		t.Fatal("error not reported")
	}
}
