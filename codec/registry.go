package codec

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// registry holds all registered codecs keyed by mode
var (
	registry = make(map[Mode]Codec)
	mu       sync.RWMutex
)

func init() {
	MustRegister(asciiCodec{})
	MustRegister(hexCodec{})
}

// Register adds a new codec to the registry.
func Register(c Codec) error {
	mu.Lock()
	defer mu.Unlock()

	mode := Mode(strings.ToUpper(string(c.Mode())))
	if _, exists := registry[mode]; exists {
		return fmt.Errorf("codec %q already registered", mode)
	}

	registry[mode] = c
	return nil
}

// MustRegister registers a codec and panics on error.
func MustRegister(c Codec) {
	if err := Register(c); err != nil {
		panic(err)
	}
}

// Get retrieves a codec by mode (case-insensitive)
func Get(mode Mode) (Codec, error) {
	mu.RLock()
	defer mu.RUnlock()

	c, exists := registry[Mode(strings.ToUpper(string(mode)))]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	return c, nil
}

// List returns all registered modes in alphabetical order
func List() []Mode {
	mu.RLock()
	defer mu.RUnlock()

	modes := make([]Mode, 0, len(registry))
	for mode := range registry {
		modes = append(modes, mode)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

// ForEach calls fn for each registered codec
func ForEach(fn func(mode Mode, c Codec)) {
	mu.RLock()
	defer mu.RUnlock()

	for mode, c := range registry {
		fn(mode, c)
	}
}
