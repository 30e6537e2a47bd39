package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"serialtool/library"
)

// loadLibrary loads the library at path. A malformed document is reported
// and replaced by an empty library.
func loadLibrary(path string, logger *slog.Logger) *library.Library {
	lib, err := library.Load(path)
	var persistErr *library.PersistenceError
	if errors.As(err, &persistErr) {
		logger.Warn("Command library unreadable, starting empty", "path", path, "error", err)
	}
	return lib
}

// NewCommandsCommand creates the commands command group
func NewCommandsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "Manage the stored command library",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			lib, err := library.Load(cfg.Library.Path)
			if err != nil {
				return err
			}
			return printLibrary(cmd, lib)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored commands with a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			lib := library.New()
			if err := lib.Import(args[0]); err != nil {
				return err
			}
			if err := lib.Save(cfg.Library.Path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d commands into %s\n", lib.Len(), cfg.Library.Path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export <file>",
		Short: "Write the stored commands to a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			lib, err := library.Load(cfg.Library.Path)
			if err != nil {
				return err
			}
			if err := lib.Export(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d commands to %s\n", lib.Len(), args[0])
			return nil
		},
	})

	return cmd
}

func printLibrary(cmd *cobra.Command, lib *library.Library) error {
	out := cmd.OutOrStdout()
	entries := lib.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(out, "(no stored commands)")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROW\tNAME\tCOMMAND\tTYPE\tNOTE")
	for i, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i, e.Name, e.Payload, e.Encoding, e.Note)
	}
	return w.Flush()
}
