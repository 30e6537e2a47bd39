package eventlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestFormatLine(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 123456789, time.Local)

	assert.Equal(t, "[RX] 2024-03-09 14:05:07.123 Hello", FormatLine(DirectionRX, ts, "Hello"))
	assert.Equal(t, "[TX] 2024-03-09 14:05:07.123 0a 1f", FormatLine(DirectionTX, ts, "0a 1f"))
	assert.Equal(t, "[ERROR] 2024-03-09 14:05:07.123 boom", FormatLine(DirectionError, ts, "boom"))
}

func TestAppend_CreatesDirectoryAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	l := New(dir)

	require.NoError(t, l.Append("first"))
	require.NoError(t, l.Append("second"))

	assert.Equal(t, filepath.Join(dir, FileName), l.Path())
	assert.Equal(t, []string{"first", "second"}, readLines(t, l.Path()))
}

func TestAppend_PreservesExistingContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("earlier run\n"), 0644))

	l := New(dir)
	require.NoError(t, l.Record(DirectionTX, time.Now(), "AT"))

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "earlier run", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "[TX] "))
	assert.True(t, strings.HasSuffix(lines[1], " AT"))
}

func TestAppend_EscapesEmbeddedLineBreaks(t *testing.T) {
	l := New(t.TempDir())
	require.NoError(t, l.Append("OK\r\nREADY\n"))

	assert.Equal(t, []string{`OK\r\nREADY\n`}, readLines(t, l.Path()))
}

func TestAppend_EscapesBackslashes(t *testing.T) {
	l := New(t.TempDir())
	require.NoError(t, l.Append(`C:\n`))
	require.NoError(t, l.Append("C:\n"))

	assert.Equal(t, []string{`C:\\n`, `C:\n`}, readLines(t, l.Path()))
}

func TestSetDirectory_RedirectsSubsequentAppends(t *testing.T) {
	first := t.TempDir()
	second := filepath.Join(t.TempDir(), "moved")

	l := New(first)
	require.NoError(t, l.Append("one"))

	l.SetDirectory(second)
	assert.Equal(t, second, l.Directory())
	require.NoError(t, l.Append("two"))

	assert.Equal(t, []string{"one"}, readLines(t, filepath.Join(first, FileName)))
	assert.Equal(t, []string{"two"}, readLines(t, filepath.Join(second, FileName)))
}

func TestNew_DefaultsDirectory(t *testing.T) {
	assert.Equal(t, DefaultDirectory, New("").Directory())

	l := New("x")
	l.SetDirectory("")
	assert.Equal(t, DefaultDirectory, l.Directory())
}

func TestAppend_ConcurrentWritersDoNotInterleave(t *testing.T) {
	l := New(t.TempDir())

	const writers = 8
	const perWriter = 50
	payload := strings.Repeat("x", 512)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				assert.NoError(t, l.Append(fmt.Sprintf("w%d-%03d %s", w, i, payload)))
			}
		}(w)
	}
	wg.Wait()

	lines := readLines(t, l.Path())
	require.Len(t, lines, writers*perWriter)
	for _, line := range lines {
		assert.True(t, strings.HasSuffix(line, " "+payload), "corrupted line: %q", line)
	}
}

func TestAppend_FailsWhenDirectoryIsAFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	l := New(blocker)
	err := l.Append("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to")
}
