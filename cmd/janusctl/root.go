package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/Janus/server/internal/grpcapi"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// networkClient is the subset of *grpcapi.Client the commands use.
type networkClient interface {
	ApplyAction(ctx context.Context, target string, action types.UserAction) (types.ActionReport, error)
	GetNetwork(ctx context.Context, target string) (types.NetworkRecord, error)
	ListNetworks(ctx context.Context, req grpcapi.ListRequest) ([]types.NetworkSnapshot, error)
	ExportOverrides(ctx context.Context) (types.OverrideExport, error)
	ImportOverrides(ctx context.Context, exp types.OverrideExport) (types.ImportReport, error)
	RunScan(ctx context.Context, req grpcapi.ScanRequest) (service.CycleResult, error)
}

type dialFunc func(addr string) (networkClient, func() error, error)

func dialClient(addr string) (networkClient, func() error, error) {
	conn, err := grpcapi.Dial(addr)
	if err != nil {
		return nil, nil, err
	}
	return grpcapi.NewClient(conn), conn.Close, nil
}

type rootOptions struct {
	addr    string
	timeout time.Duration
	dial    dialFunc
}

// withClient runs fn against a freshly dialed client with the command timeout.
func (o *rootOptions) withClient(cmd *cobra.Command, fn func(ctx context.Context, c networkClient) error) error {
	c, closeFn, err := o.dial(o.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", o.addr, err)
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()
	return fn(ctx, c)
}

func newRootCmd(dial dialFunc) *cobra.Command {
	opts := &rootOptions{dial: dial}

	root := &cobra.Command{
		Use:           "janusctl",
		Short:         "Manage network trust decisions on a janus-server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultAddr := os.Getenv("JANUS_GRPC_ADDR")
	if defaultAddr == "" {
		defaultAddr = "localhost:9090"
	}
	root.PersistentFlags().StringVar(&opts.addr, "addr", defaultAddr, "janus-server gRPC address")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-command timeout")

	for _, a := range []types.UserAction{
		types.ActionTrust, types.ActionUntrust,
		types.ActionFlag, types.ActionUnflag,
		types.ActionBlock, types.ActionUnblock,
	} {
		root.AddCommand(newActionCmd(opts, a))
	}
	root.AddCommand(
		newListCmd(opts),
		newShowCmd(opts),
		newScanCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
	)
	return root
}

func newActionCmd(opts *rootOptions, action types.UserAction) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " <bssid|ssid:name>",
		Short: fmt.Sprintf("Apply the %s override to a network", action),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, func(ctx context.Context, c networkClient) error {
				rep, err := c.ApplyAction(ctx, args[0], action)
				if err != nil {
					return err
				}
				if !rep.Applied {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s unchanged at %s: %s not applied, %s\n",
						rep.BSSID, displaySSID(rep.SSID), rep.CurrentStatus, action, rep.Reason)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s (user_managed=%t)\n",
					rep.BSSID, displaySSID(rep.SSID), rep.CurrentStatus, rep.IsUserManaged)
				return nil
			})
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		nearby bool
		window time.Duration
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := grpcapi.ListRequest{Nearby: nearby}
			if window > 0 {
				req.Window = window.String()
			}
			return opts.withClient(cmd, func(ctx context.Context, c networkClient) error {
				nets, err := c.ListNetworks(ctx, req)
				if err != nil {
					return err
				}
				return printNetworks(cmd.OutOrStdout(), nets, time.Now())
			})
		},
	}
	cmd.Flags().BoolVar(&nearby, "nearby", false, "only recently seen networks, excluding blocked")
	cmd.Flags().DurationVar(&window, "window", 0, "nearby window (server default when 0)")
	return cmd
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <bssid|ssid:name>",
		Short: "Show one network record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, func(ctx context.Context, c networkClient) error {
				rec, err := c.GetNetwork(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rec)
			})
		},
	}
}

func newScanCmd(opts *rootOptions) *cobra.Command {
	var background bool
	cmd := &cobra.Command{
		Use:   "scan <observations.json>",
		Short: "Submit a batch of observations as a scan cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var batch []types.Observation
			if err := json.Unmarshal(b, &batch); err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			return opts.withClient(cmd, func(ctx context.Context, c networkClient) error {
				res, err := c.RunScan(ctx, grpcapi.ScanRequest{Manual: !background, Observations: batch})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "cycle %s: %d found, %d assessed, %d skipped, %d newly suspicious\n",
					res.CycleID, res.TotalFound, res.Assessed, res.Skipped, res.NewlySuspicious)
				if len(res.Advisories) > 0 {
					fmt.Fprintf(out, "advisories: %s\n", strings.Join(res.Advisories, ", "))
				}
				return printNetworks(out, res.Networks, time.Now())
			})
		},
	}
	cmd.Flags().BoolVar(&background, "background", false, "submit as a silent background scan")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export user overrides as a backup file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, func(ctx context.Context, c networkClient) error {
				exp, err := c.ExportOverrides(ctx)
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					return writeJSON(cmd.OutOrStdout(), exp)
				}
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				if err := writeJSON(f, exp); err != nil {
					f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <backup.json>",
		Short: "Import user overrides from a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var exp types.OverrideExport
			if err := json.Unmarshal(b, &exp); err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			return opts.withClient(cmd, func(ctx context.Context, c networkClient) error {
				report, err := c.ImportOverrides(ctx, exp)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "imported %d, rejected %d\n", report.Imported, len(report.Rejected))
				for _, r := range report.Rejected {
					fmt.Fprintf(out, "  %s[%d] %s: %s\n", r.Category, r.Index, r.BSSID, r.Reason)
				}
				return nil
			})
		},
	}
}

func printNetworks(w io.Writer, nets []types.NetworkSnapshot, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BSSID\tSSID\tSTATUS\tSCORE\tTHREAT\tINDICATORS\tLAST SEEN")
	for _, n := range nets {
		score := "-"
		if n.Score != nil {
			score = fmt.Sprintf("%d (%s)", *n.Score, n.Grade)
		}
		status := string(n.CurrentStatus)
		if n.IsUserManaged {
			status += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			n.BSSID, displaySSID(n.SSID), status, score, orDash(string(n.ThreatLevel)),
			orDash(strings.Join(n.Indicators, ",")), lastSeen(n.LastSeen, now))
	}
	return tw.Flush()
}

func lastSeen(ts string, now time.Time) string {
	if ts == "" {
		return "never"
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func displaySSID(s string) string {
	if s == "" {
		return "<hidden>"
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
