package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/caplog/internal/event"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start capturing unless capture is already running",
	Long: `Start the capture tool for the configured host unless one owned by the
host's user is already running. The previous capture file is deleted first
unless --append is given.

A destination must have been set with 'caplog set destination <path>'.`,
	Args: cobra.NoArgs,
	RunE: withApp(runStart),
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running capture process",
	Args:  cobra.NoArgs,
	RunE:  withApp(runStop),
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restart capture from the start of the log buffer",
	Long: `Stop capture, forget the since-checkpoint and the cached owner, and start
again so the whole buffer is captured into a fresh file.`,
	Args: cobra.NoArgs,
	RunE: withApp(runReset),
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Restart capture from now on",
	Long: `Stop capture, record the current time as the since-checkpoint, and start
again into a fresh file.`,
	Args: cobra.NoArgs,
	RunE: withApp(runClear),
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep capture running",
	Long: `Start capture and keep it running until interrupted: restart it when it
disappears from the process table, and restart it with the new settings
whenever they change.`,
	Args: cobra.NoArgs,
	RunE: withApp(runWatch),
}

var startAppend bool

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(watchCmd)

	startCmd.Flags().BoolVar(&startAppend, "append", false, "keep the previous capture file")
}

// errNotDone is returned when an operation reports failure; the reason has
// already been logged.
type errNotDone string

func (e errNotDone) Error() string { return string(e) + " failed, see the log for details" }

func result(cmd *cobra.Command, op string, ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return errNotDone(op)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", op)
	return nil
}

func runStart(cmd *cobra.Command, args []string, a *app) error {
	ctx, cancel := a.commandContext(cmd)
	defer cancel()
	ok, err := a.sup.Start(ctx, !startAppend)
	return result(cmd, "start", ok, err)
}

func runStop(cmd *cobra.Command, args []string, a *app) error {
	ctx, cancel := a.commandContext(cmd)
	defer cancel()
	return result(cmd, "stop", a.sup.Stop(ctx), nil)
}

func runReset(cmd *cobra.Command, args []string, a *app) error {
	ctx, cancel := a.commandContext(cmd)
	defer cancel()
	ok, err := a.sup.Reset(ctx)
	return result(cmd, "reset", ok, err)
}

func runClear(cmd *cobra.Command, args []string, a *app) error {
	ctx, cancel := a.commandContext(cmd)
	defer cancel()
	ok, err := a.sup.Clear(ctx)
	return result(cmd, "clear", ok, err)
}

func runWatch(cmd *cobra.Command, args []string, a *app) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	a.bus.SubscribeAll(func(e event.Event) {
		switch ev := e.(type) {
		case event.CaptureStartedEvent:
			fmt.Fprintf(out, "%s capture started as pid %s\n", ev.Timestamp().Format(timeLayout), ev.PID)
		case event.CaptureStoppedEvent:
			fmt.Fprintf(out, "%s capture pid %s stopped\n", ev.Timestamp().Format(timeLayout), ev.PID)
		case event.CaptureRestartedEvent:
			fmt.Fprintf(out, "%s restart (%s): %v\n", ev.Timestamp().Format(timeLayout), ev.Reason, ev.Success)
		case event.CaptureFailedEvent:
			fmt.Fprintf(out, "%s %s failed: %v\n", ev.Timestamp().Format(timeLayout), ev.Operation, ev.Err)
		}
	})

	fmt.Fprintf(out, "watching capture for %s (interval %s), Ctrl+C to stop\n",
		a.host.Name, a.cfg.Capture.WatchInterval)
	err := a.sup.Watch(ctx, a.cfg.Capture.WatchInterval)
	if err != nil && ctx.Err() == nil {
		return err
	}
	if ctx.Err() == context.Canceled {
		fmt.Fprintln(out, "stopped watching; capture keeps running")
	}
	return nil
}
