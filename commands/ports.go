package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"serialtool/serial"
)

// NewPortsCommand creates the ports command
func NewPortsCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List available serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if !verbose {
				ports, err := serial.ListPorts()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "Available serial ports:")
				if len(ports) == 0 {
					fmt.Fprintln(out, "  (none found)")
				}
				for _, port := range ports {
					fmt.Fprintf(out, "  %s\n", port)
				}
				return nil
			}

			ports, err := serial.ListDetailedPorts()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Fprintln(out, "(none found)")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PORT\tUSB\tVID:PID\tSERIAL\tPRODUCT")
			for _, p := range ports {
				usb, ids := "no", ""
				if p.IsUSB {
					usb, ids = "yes", p.VID+":"+p.PID
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, usb, ids, p.SerialNumber, p.Product)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show USB details")
	return cmd
}
