package controller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serialtool/codec"
	"serialtool/config"
	"serialtool/eventlog"
	"serialtool/library"
	"serialtool/serial"
	"serialtool/session"
)

type lineRecorder struct {
	lines chan Line
}

func newLineRecorder() *lineRecorder {
	return &lineRecorder{lines: make(chan Line, 128)}
}

func (r *lineRecorder) Display(line Line) {
	r.lines <- line
}

// next returns the next line with the given direction, skipping others
func (r *lineRecorder) next(t *testing.T, dir eventlog.Direction) Line {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case line := <-r.lines:
			if line.Direction == dir {
				return line
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s line", dir)
			return Line{}
		}
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []session.EventKind
}

func (n *recordingNotifier) NotifyEvent(ev session.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev.Kind)
}

func (n *recordingNotifier) kinds() []session.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]session.EventKind(nil), n.events...)
}

type fixture struct {
	ctrl     *Controller
	bus      *serial.MockBus
	sink     *lineRecorder
	notifier *recordingNotifier
	logDir   string
	libPath  string
}

func newFixture(t *testing.T, mode codec.Mode, entries ...library.Entry) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		bus:      serial.NewMockBus("COM-TEST", "COM-OTHER"),
		sink:     newLineRecorder(),
		notifier: &recordingNotifier{},
		logDir:   filepath.Join(dir, "logs"),
		libPath:  filepath.Join(dir, "commands.json"),
	}
	f.ctrl = New(Options{
		Opener:      f.bus.Open,
		Lister:      f.bus.List,
		EventLog:    eventlog.New(f.logDir),
		Library:     library.New(entries...),
		LibraryPath: f.libPath,
		Notifier:    f.notifier,
		Sink:        f.sink,
		Mode:        mode,
		WorkerOptions: []session.Option{
			session.WithPollInterval(time.Millisecond),
			session.WithReadTimeout(5 * time.Millisecond),
		},
	})
	t.Cleanup(func() { _ = f.ctrl.Close(context.Background()) })
	return f
}

func (f *fixture) logLines(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.logDir, eventlog.FileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func (f *fixture) open(t *testing.T) *serial.MockPort {
	t.Helper()
	require.NoError(t, f.ctrl.Start(context.Background(), "COM-TEST", 9600))
	f.sink.next(t, DirectionStatus) // opening
	f.sink.next(t, DirectionStatus) // opened
	return f.bus.Port("COM-TEST")
}

func TestController_ReceivedBytesFollowDisplayMode(t *testing.T) {
	tests := []struct {
		mode   codec.Mode
		suffix string
	}{
		{codec.ModeASCII, "Hello"},
		{codec.ModeHex, "48 65 6c 6c 6f"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			f := newFixture(t, tt.mode)
			port := f.open(t)

			port.Inject([]byte{0x48, 0x65, 0x6C, 0x6C, 0x6F})

			line := f.sink.next(t, eventlog.DirectionRX)
			assert.True(t, strings.HasSuffix(line.String(), tt.suffix), line.String())

			logged := f.logLines(t)
			require.Len(t, logged, 1)
			assert.True(t, strings.HasPrefix(logged[0], "[RX] "))
			assert.True(t, strings.HasSuffix(logged[0], tt.suffix), logged[0])
		})
	}
}

func TestController_SendLogsTX(t *testing.T) {
	f := newFixture(t, codec.ModeHex)
	port := f.open(t)

	require.NoError(t, f.ctrl.Send("0A 1F"))

	assert.Equal(t, [][]byte{{0x0A, 0x1F}}, port.GetWrites())
	line := f.sink.next(t, eventlog.DirectionTX)
	assert.Equal(t, "0a 1f", line.Text)

	logged := f.logLines(t)
	require.Len(t, logged, 1)
	assert.True(t, strings.HasPrefix(logged[0], "[TX] "))
	assert.True(t, strings.HasSuffix(logged[0], " 0a 1f"))
}

func TestController_InvalidHexIsReportedAndNotSent(t *testing.T) {
	f := newFixture(t, codec.ModeHex)
	port := f.open(t)

	err := f.ctrl.Send("abc")
	var formatErr *codec.FormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Empty(t, port.GetWrites())

	line := f.sink.next(t, eventlog.DirectionError)
	assert.Contains(t, line.Text, "odd number of hex digits")

	logged := f.logLines(t)
	require.Len(t, logged, 1)
	assert.True(t, strings.HasPrefix(logged[0], "[ERROR] "))
}

func TestController_SendWithoutSession(t *testing.T) {
	f := newFixture(t, codec.ModeASCII)

	require.NoError(t, f.ctrl.Send("AT"))

	line := f.sink.next(t, DirectionStatus)
	assert.Contains(t, line.Text, "Not connected")
	assert.Empty(t, f.logLines(t), "status lines are display only")
}

func TestController_SendStoredSwitchesMode(t *testing.T) {
	f := newFixture(t, codec.ModeASCII,
		library.Entry{Name: "ping", Payload: "AT", Encoding: codec.ModeASCII},
		library.Entry{Name: "raw", Payload: "01 02", Encoding: codec.ModeHex},
	)
	port := f.open(t)

	require.NoError(t, f.ctrl.SendStored(1))
	assert.Equal(t, codec.ModeHex, f.ctrl.Mode())
	assert.Equal(t, [][]byte{{0x01, 0x02}}, port.GetWrites())

	require.NoError(t, f.ctrl.SendStored(0))
	assert.Equal(t, codec.ModeASCII, f.ctrl.Mode())

	err := f.ctrl.SendStored(5)
	var indexErr *library.IndexError
	assert.True(t, errors.As(err, &indexErr))
	assert.Len(t, port.GetWrites(), 2)
}

func TestController_SendStoredWithoutTypeUsesCurrentMode(t *testing.T) {
	f := newFixture(t, codec.ModeHex)
	source := filepath.Join(t.TempDir(), "untyped.json")
	require.NoError(t, os.WriteFile(source, []byte(`[{"name":"raw","command":"0A 1F","note":""}]`), 0644))
	require.NoError(t, f.ctrl.Library().Import(source))
	port := f.open(t)

	require.NoError(t, f.ctrl.SendStored(0))

	assert.Equal(t, codec.ModeHex, f.ctrl.Mode())
	assert.Equal(t, [][]byte{{0x0A, 0x1F}}, port.GetWrites())
	line := f.sink.next(t, eventlog.DirectionTX)
	assert.Equal(t, "0a 1f", line.Text)
}

func TestController_WriteErrorIsLoggedAndSessionStays(t *testing.T) {
	f := newFixture(t, codec.ModeASCII)
	port := f.open(t)
	port.SetWriteError(errors.New("write timeout"))

	err := f.ctrl.Send("AT")
	var writeErr *session.WriteError
	require.True(t, errors.As(err, &writeErr))

	line := f.sink.next(t, eventlog.DirectionError)
	assert.Contains(t, line.Text, "write timeout")
	assert.True(t, f.ctrl.Running())
}

func TestController_OpenErrorIsLogged(t *testing.T) {
	f := newFixture(t, codec.ModeASCII)
	f.bus.FailOpen("COM-TEST", errors.New("access denied"))

	err := f.ctrl.Start(context.Background(), "COM-TEST", 9600)
	var openErr *session.OpenError
	require.True(t, errors.As(err, &openErr))

	line := f.sink.next(t, eventlog.DirectionError)
	assert.Contains(t, line.Text, "access denied")
	assert.False(t, f.ctrl.Running())

	require.Eventually(t, func() bool {
		return len(f.notifier.kinds()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []session.EventKind{session.EventOpenError}, f.notifier.kinds())
}

func TestController_StartReplacesSession(t *testing.T) {
	f := newFixture(t, codec.ModeASCII)
	first := f.open(t)

	require.NoError(t, f.ctrl.Start(context.Background(), "COM-OTHER", 115200))
	assert.False(t, first.IsOpen())
	assert.True(t, f.ctrl.Running())
	assert.Equal(t, "COM-OTHER", f.ctrl.SessionInfo().Device)

	require.NoError(t, f.ctrl.Stop(context.Background()))
	assert.False(t, f.ctrl.Running())
	assert.False(t, f.bus.Port("COM-OTHER").IsOpen())

	require.Eventually(t, func() bool {
		return len(f.notifier.kinds()) == 4
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []session.EventKind{
		session.EventOpened, session.EventClosed,
		session.EventOpened, session.EventClosed,
	}, f.notifier.kinds())
}

func TestController_SetLogDirectory(t *testing.T) {
	f := newFixture(t, codec.ModeASCII)
	port := f.open(t)

	moved := filepath.Join(t.TempDir(), "elsewhere")
	f.ctrl.SetLogDirectory(moved)
	assert.Equal(t, filepath.Join(moved, eventlog.FileName), f.ctrl.LogPath())

	port.Inject([]byte("hi"))
	f.sink.next(t, eventlog.DirectionRX)

	data, err := os.ReadFile(filepath.Join(moved, eventlog.FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[RX] ")
	assert.Empty(t, f.logLines(t))
}

func TestController_SetModeRejectsUnknown(t *testing.T) {
	f := newFixture(t, codec.ModeASCII)
	assert.ErrorIs(t, f.ctrl.SetMode("BIN"), codec.ErrUnknownMode)
	assert.Equal(t, codec.ModeASCII, f.ctrl.Mode())
}

func TestController_Recent(t *testing.T) {
	f := newFixture(t, codec.ModeASCII)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.ctrl.Send("x"))
	}

	assert.Len(t, f.ctrl.Recent(0), 3)
	assert.Len(t, f.ctrl.Recent(2), 2)
}

func TestController_CloseSavesNonEmptyLibrary(t *testing.T) {
	t.Run("non-empty", func(t *testing.T) {
		f := newFixture(t, codec.ModeASCII, library.Entry{Name: "ping", Payload: "AT", Encoding: codec.ModeASCII})
		port := f.open(t)

		require.NoError(t, f.ctrl.Close(context.Background()))
		assert.False(t, port.IsOpen())

		loaded, err := library.Load(f.libPath)
		require.NoError(t, err)
		assert.Equal(t, f.ctrl.Library().Entries(), loaded.Entries())
	})

	t.Run("empty", func(t *testing.T) {
		f := newFixture(t, codec.ModeASCII)
		require.NoError(t, f.ctrl.Close(context.Background()))

		_, err := os.Stat(f.libPath)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestController_ListPorts(t *testing.T) {
	f := newFixture(t, codec.ModeASCII)
	ports, err := f.ctrl.ListPorts()
	require.NoError(t, err)
	assert.Equal(t, []string{"COM-OTHER", "COM-TEST"}, ports)
}

func TestController_EmptySendIsIgnored(t *testing.T) {
	f := newFixture(t, codec.ModeASCII)
	port := f.open(t)

	require.NoError(t, f.ctrl.Send(""))
	assert.Empty(t, port.GetWrites())
	assert.Empty(t, f.logLines(t))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Serial.Mode = "HEX"
	cfg.EventLog.Directory = filepath.Join(t.TempDir(), "traffic")
	cfg.Library.Path = "macros.json"

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, codec.ModeHex, opts.Mode)
	assert.Equal(t, "macros.json", opts.LibraryPath)
	assert.Equal(t, filepath.Join(cfg.EventLog.Directory, eventlog.FileName), opts.EventLog.Path())
	assert.Len(t, opts.WorkerOptions, 2)
}
