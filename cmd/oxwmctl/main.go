// Command oxwmctl drives a running oxwm through its control socket.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/zafkar/oxwm/internal/config"
	"github.com/zafkar/oxwm/internal/control/client"
	"github.com/zafkar/oxwm/internal/state"
	"github.com/zafkar/oxwm/internal/ui/tui"
)

var (
	socketPath   string
	timeout      time.Duration
	asJSON       bool
	watchRefresh time.Duration
)

func main() {
	root := &cobra.Command{
		Use:           "oxwmctl",
		Short:         "control a running oxwm",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&socketPath, "socket", "", "path to the oxwm control socket")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 3*time.Second, "control request timeout")

	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "print the manager state",
		Args:  cobra.NoArgs,
		RunE:  runState,
	}
	stateCmd.Flags().BoolVar(&asJSON, "json", false, "emit raw JSON")
	root.AddCommand(stateCmd)

	keybindsCmd := &cobra.Command{
		Use:   "keybinds",
		Short: "list the configured key bindings",
		Args:  cobra.NoArgs,
		RunE:  runKeybinds,
	}
	keybindsCmd.Flags().BoolVar(&asJSON, "json", false, "emit raw JSON")
	root.AddCommand(keybindsCmd)

	metricsCmd := &cobra.Command{
		Use:   "metrics",
		Short: "print action metrics",
		Args:  cobra.NoArgs,
		RunE:  runMetrics,
	}
	metricsCmd.Flags().BoolVar(&asJSON, "json", false, "emit raw JSON")
	root.AddCommand(metricsCmd)

	root.AddCommand(&cobra.Command{
		Use:   "reload",
		Short: "reload the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, ctx, cancel, err := dial()
			if err != nil {
				return err
			}
			defer cancel()
			return cli.Reload(ctx)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "dispatch <action> [arg]",
		Short: "run a window manager action",
		Long: "Run a named action, e.g. 'dispatch view-tag 2' or 'dispatch set-layout grid'.\n" +
			"Numeric arguments are passed as integers, anything else as a string.",
		Args: cobra.RangeArgs(1, 2),
		RunE: runDispatch,
	})

	root.AddCommand(&cobra.Command{
		Use:   "quit",
		Short: "stop the window manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, ctx, cancel, err := dial()
			if err != nil {
				return err
			}
			defer cancel()
			return cli.Quit(ctx)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "restart",
		Short: "restart the window manager in place",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, ctx, cancel, err := dial()
			if err != nil {
				return err
			}
			defer cancel()
			return cli.Restart(ctx)
		},
	})

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "live view of the manager state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := client.New(socketPath)
			if err != nil {
				return fmt.Errorf("create client: %w", err)
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			r := tui.New(cli, os.Stdout)
			r.Refresh = watchRefresh
			if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	watchCmd.Flags().DurationVar(&watchRefresh, "refresh", 500*time.Millisecond, "refresh interval")
	root.AddCommand(watchCmd)

	root.AddCommand(&cobra.Command{
		Use:   "check <config>",
		Short: "validate a configuration file without a running manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(args[0]); err != nil {
				return err
			}
			fmt.Println("configuration OK")
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "oxwmctl:", err)
		os.Exit(1)
	}
}

func dial() (*client.Client, context.Context, context.CancelFunc, error) {
	cli, err := client.New(socketPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return cli, ctx, cancel, nil
}

func runState(cmd *cobra.Command, args []string) error {
	cli, ctx, cancel, err := dial()
	if err != nil {
		return err
	}
	defer cancel()
	snap, err := cli.State(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(snap)
	}
	for _, mon := range snap.Monitors {
		marker := " "
		if mon.Selected {
			marker = "*"
		}
		fmt.Printf("%smonitor %d  %dx%d+%d+%d  layout=%s  tags=%s\n",
			marker, mon.Index, mon.Width, mon.Height, mon.X, mon.Y,
			mon.Layout, tagNames(snap.Tags, mon.VisibleTags))
	}
	for _, c := range snap.Clients {
		flags := ""
		if c.Focused {
			flags += "F"
		}
		if c.Floating {
			flags += "f"
		}
		if c.Fullscreen {
			flags += "M"
		}
		if c.Urgent {
			flags += "!"
		}
		fmt.Printf("0x%08x  mon=%d tags=%-12s %-4s %s\n",
			c.Window, c.Monitor, tagNames(snap.Tags, c.Tags), flags, c.Title)
	}
	return nil
}

func runKeybinds(cmd *cobra.Command, args []string) error {
	cli, ctx, cancel, err := dial()
	if err != nil {
		return err
	}
	defer cancel()
	binds, err := cli.Keybinds(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(binds)
	}
	for _, b := range binds {
		fmt.Printf("%-32s %s\n", b.Keys, b.Action)
	}
	return nil
}

func runMetrics(cmd *cobra.Command, args []string) error {
	cli, ctx, cancel, err := dial()
	if err != nil {
		return err
	}
	defer cancel()
	snap, err := cli.Metrics(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(snap)
	}
	if !snap.Enabled {
		fmt.Println("metrics collection is disabled")
		return nil
	}
	fmt.Printf("since %s\n", snap.Started.Format(time.RFC3339))
	fmt.Printf("dispatched=%d failed=%d managed=%d rule-matches=%d\n",
		snap.Totals.Dispatched, snap.Totals.Failed,
		snap.Counters.ClientsManaged, snap.Counters.RuleMatches)
	for _, a := range snap.Actions {
		fmt.Printf("%-24s %6d runs %6d failed\n", a.Action, a.Dispatched, a.Failed)
	}
	return nil
}

func runDispatch(cmd *cobra.Command, args []string) error {
	kind := args[0]
	intArg := 0
	strArg := ""
	if len(args) == 2 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			intArg = n
		} else {
			strArg = args[1]
		}
	}
	cli, ctx, cancel, err := dial()
	if err != nil {
		return err
	}
	defer cancel()
	return cli.Dispatch(ctx, kind, intArg, strArg)
}

// tagNames renders a tag mask using the configured tag names.
func tagNames(tags []string, mask uint32) string {
	out := ""
	for _, i := range state.TagMask(mask).Indices() {
		if out != "" {
			out += ","
		}
		if i < len(tags) {
			out += tags[i]
		} else {
			out += strconv.Itoa(i)
		}
	}
	if out == "" {
		return "-"
	}
	return out
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
