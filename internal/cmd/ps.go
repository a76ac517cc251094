package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var psCmd = &cobra.Command{
	Use:   "ps [name]",
	Short: "List processes as caplog sees them",
	Long: `List the rows of the process table that caplog parses, optionally only
those whose command name is exactly <name>. Useful to check that the
listing command's output is understood.`,
	Args: cobra.MaximumNArgs(1),
	RunE: withApp(runPs),
}

func init() {
	rootCmd.AddCommand(psCmd)
}

func runPs(cmd *cobra.Command, args []string, a *app) error {
	ctx, cancel := a.commandContext(cmd)
	defer cancel()

	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	records, err := a.reader.List(ctx, name)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tPID\tNAME")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\n", rec.User, rec.PID, rec.Name)
	}
	return w.Flush()
}
