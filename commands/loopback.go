package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"serialtool/serial"
)

// NewLoopbackCommand creates the loopback self-test command
func NewLoopbackCommand() *cobra.Command {
	var (
		device   string
		baud     int
		message  string
		count    int
		wait     time.Duration
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "loopback",
		Short: "Check a port by sending messages and expecting them back",
		Long: `loopback writes numbered messages and expects each one echoed back.
Bridge TX and RX (pins 2 and 3 on a DB9) or point it at a device that echoes.`,
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
				return fmt.Errorf("no device given (use --device or serial.device)")
			}
			if baud == 0 {
				baud = cfg.Serial.BaudRate
			}

			test := loopbackTest{
				Port: serial.PortConfig{
					Device:      device,
					BaudRate:    baud,
					DataBits:    8,
					StopBits:    1,
					Parity:      "none",
					ReadTimeout: cfg.Serial.ReadTimeout(),
				},
				Message:  message,
				Count:    count,
				Wait:     wait,
				Interval: interval,
			}
			return test.Run(cmd.Context(), serial.Open, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", "Serial device (default from config)")
	cmd.Flags().IntVarP(&baud, "baud", "b", 0, "Baud rate (default from config)")
	cmd.Flags().StringVar(&message, "message", "TEST", "Message prefix")
	cmd.Flags().IntVar(&count, "count", 5, "Number of messages")
	cmd.Flags().DurationVar(&wait, "wait", 500*time.Millisecond, "How long to wait for each echo")
	cmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "Pause between messages")

	return cmd
}

type loopbackTest struct {
	Port     serial.PortConfig
	Message  string
	Count    int
	Wait     time.Duration
	Interval time.Duration
}

// Run sends Count messages and reports each echo. It fails if any message
// did not come back intact.
func (t loopbackTest) Run(ctx context.Context, open serial.Opener, out io.Writer) error {
	port, err := open(t.Port)
	if err != nil {
		return fmt.Errorf("failed to open port: %w", err)
	}
	defer port.Close()

	fmt.Fprintf(out, "Loopback test on %s at %d baud\n", t.Port.Device, t.Port.BaudRate)

	failed := 0
	for i := 1; i <= t.Count; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msg := fmt.Sprintf("%s-%d\n", t.Message, i)
		fmt.Fprintf(out, "Sending: %s", msg)

		if _, err := port.Write([]byte(msg)); err != nil {
			return fmt.Errorf("failed to write to %s: %w", t.Port.Device, err)
		}

		got, err := readEcho(port, len(msg), t.Wait)
		switch {
		case err != nil:
			failed++
			fmt.Fprintf(out, "  FAIL no data received (error: %v)\n", err)
		case len(got) == 0:
			failed++
			fmt.Fprintln(out, "  FAIL no data received (timeout)")
		case bytes.Equal(got, []byte(msg)):
			fmt.Fprintf(out, "  OK   %s\n", bytes.TrimRight(got, "\n"))
		default:
			failed++
			fmt.Fprintf(out, "  FAIL received different: %q\n", got)
		}

		if i < t.Count && t.Interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(t.Interval):
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("loopback failed: %d of %d messages did not echo", failed, t.Count)
	}
	fmt.Fprintf(out, "Loopback OK: %d messages\n", t.Count)
	return nil
}

// readEcho collects up to want bytes or whatever arrived before wait elapsed
func readEcho(port serial.Port, want int, wait time.Duration) ([]byte, error) {
	deadline := time.Now().Add(wait)
	buf := make([]byte, 256)
	var got []byte

	for len(got) < want && time.Now().Before(deadline) {
		n, err := port.Read(buf)
		if err != nil {
			return got, err
		}
		got = append(got, buf[:n]...)
	}
	return got, nil
}
