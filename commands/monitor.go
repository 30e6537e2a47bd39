package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"serialtool/codec"
	"serialtool/controller"
	"serialtool/library"
	"serialtool/logging"
	"serialtool/monitoring"
	"serialtool/notify"
)

var lineEndings = map[string]string{
	"none": "",
	"lf":   "\n",
	"cr":   "\r",
	"crlf": "\r\n",
}

// NewMonitorCommand creates the interactive monitor command
func NewMonitorCommand(info BuildInfo) *cobra.Command {
	var (
		device     string
		baud       int
		mode       string
		lineEnding string
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Open a port and exchange data from the terminal",
		Long: `monitor opens a serial port, prints every received chunk and sends each
line typed on stdin. Lines starting with ':' are local commands, see :help.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if device == "" {
				device = cfg.Serial.Device
			}
			if device == "" {
				return errors.New("no device given (use --device or serial.device)")
			}
			if baud == 0 {
				baud = cfg.Serial.BaudRate
			}
			if mode != "" {
				parsed, err := codec.ParseMode(mode)
				if err != nil {
					return err
				}
				cfg.Serial.Mode = string(parsed)
			}
			ending, ok := lineEndings[strings.ToLower(lineEnding)]
			if !ok {
				return fmt.Errorf("unknown line ending %q (none, lf, cr, crlf)", lineEnding)
			}

			logger, closer := logging.New(&cfg.Logging, cmd.ErrOrStderr(), debugMode)
			defer closer.Close()

			logger.Info("serialtool monitor starting",
				"version", info.Version,
				"instance", cfg.App.InstanceID,
				"device", device,
				"baud", baud,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			notifier := notify.NewWebhookNotifier(&cfg.Notify, cfg.App.InstanceID, logger)
			defer notifier.Close()

			out := cmd.OutOrStdout()
			opts := controller.OptionsFromConfig(cfg)
			opts.Library = loadLibrary(cfg.Library.Path, logger)
			opts.Notifier = notifier
			opts.Logger = logger
			opts.Sink = newWriterSink(out)
			ctrl := controller.New(opts)

			g, gctx := errgroup.WithContext(ctx)

			if cfg.Monitoring.Enabled {
				srv := monitoring.NewServer(cfg, info.Version, ctrl, logger)
				g.Go(func() error {
					return srv.Run(gctx)
				})
			}

			con := &console{ctrl: ctrl, out: out, lineEnding: ending, baud: baud}
			if err := ctrl.Start(gctx, device, baud); err == nil {
				con.device = device
			}

			g.Go(func() error {
				defer cancel()
				return runConsole(gctx, cmd.InOrStdin(), con)
			})

			runErr := g.Wait()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			closeErr := ctrl.Close(shutdownCtx)

			logger.Info("serialtool monitor stopped")
			return errors.Join(runErr, closeErr)
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", "Serial device (default from config)")
	cmd.Flags().IntVarP(&baud, "baud", "b", 0, "Baud rate (default from config)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Display mode: ASCII or HEX (default from config)")
	cmd.Flags().StringVar(&lineEnding, "line-ending", "none", "Appended to typed ASCII lines: none, lf, cr or crlf")

	return cmd
}

// writerSink prints display lines to a terminal
type writerSink struct {
	mu  sync.Mutex
	out io.Writer
}

func newWriterSink(out io.Writer) *writerSink {
	return &writerSink{out: out}
}

func (s *writerSink) Display(line controller.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, line.String())
}

// runConsole feeds stdin lines to con until EOF, :quit or ctx ends
func runConsole(ctx context.Context, in io.Reader, con *console) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			if con.handle(ctx, line) {
				return nil
			}
		}
	}
}

const consoleHelp = `Local commands:
  :mode ascii|hex        switch the display mode
  :send <row>            send a stored command by row
  :commands              list stored commands
  :open [device] [baud]  open a port (defaults to the last one)
  :close                 close the port
  :log <dir>             change the event log directory
  :quit                  exit
Any other line is sent in the current mode.`

// console interprets one terminal line at a time
type console struct {
	ctrl       *controller.Controller
	out        io.Writer
	lineEnding string
	device     string
	baud       int
}

// handle runs one line and reports whether the user asked to quit
func (c *console) handle(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, ":") {
		if line != "" && c.ctrl.Mode() == codec.ModeASCII {
			line += c.lineEnding
		}
		// Failures are already on the display
		_ = c.ctrl.Send(line)
		return false
	}

	fields := strings.Fields(strings.TrimPrefix(line, ":"))
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "quit", "q", "exit":
		return true

	case "help", "h":
		fmt.Fprintln(c.out, consoleHelp)

	case "mode":
		if len(fields) != 2 {
			fmt.Fprintf(c.out, "current mode: %s\n", c.ctrl.Mode())
			return false
		}
		mode, err := codec.ParseMode(fields[1])
		if err == nil {
			err = c.ctrl.SetMode(mode)
		}
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
			return false
		}
		fmt.Fprintf(c.out, "mode: %s\n", mode)

	case "send":
		if len(fields) != 2 {
			fmt.Fprintln(c.out, "usage: :send <row>")
			return false
		}
		row, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Fprintf(c.out, "invalid row %q\n", fields[1])
			return false
		}
		err = c.ctrl.SendStored(row)
		var indexErr *library.IndexError
		if errors.As(err, &indexErr) {
			fmt.Fprintf(c.out, "no stored command at row %d\n", row)
		}

	case "commands":
		entries := c.ctrl.Library().Entries()
		if len(entries) == 0 {
			fmt.Fprintln(c.out, "(no stored commands)")
		}
		for i, e := range entries {
			fmt.Fprintf(c.out, "%3d  %-16s %-5s %s\n", i, e.Name, e.Encoding, e.Payload)
		}

	case "open":
		if len(fields) > 1 {
			c.device = fields[1]
		}
		if len(fields) > 2 {
			baud, err := strconv.Atoi(fields[2])
			if err != nil || baud <= 0 {
				fmt.Fprintf(c.out, "invalid baud rate %q\n", fields[2])
				return false
			}
			c.baud = baud
		}
		if c.device == "" {
			fmt.Fprintln(c.out, "usage: :open <device> [baud]")
			return false
		}
		// Open failures are already on the display
		_ = c.ctrl.Start(ctx, c.device, c.baud)

	case "close":
		if err := c.ctrl.Stop(ctx); err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}

	case "log":
		if len(fields) != 2 {
			fmt.Fprintf(c.out, "logging to %s\n", c.ctrl.LogPath())
			return false
		}
		c.ctrl.SetLogDirectory(fields[1])

	default:
		fmt.Fprintf(c.out, "unknown command :%s (try :help)\n", fields[0])
	}
	return false
}
