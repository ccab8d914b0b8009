package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/park285/chesswatch/internal/board"
	appcfg "github.com/park285/chesswatch/internal/config"
	"github.com/park285/chesswatch/internal/dashboard"
	"github.com/park285/chesswatch/internal/metrics"
)

var (
	boardOut  string
	boardFlip bool
	checkWait time.Duration
)

var boardCmd = &cobra.Command{
	Use:   "board <fen>",
	Short: "Render a FEN position to PNG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dash := dashboard.New(nil, dashboard.WithRenderer(board.NewRenderer()))
		png, err := dash.RenderFEN(cmd.Context(), args[0], boardFlip)
		if err != nil {
			return err
		}
		if boardOut == "" || boardOut == "-" {
			_, err = cmd.OutOrStdout().Write(png)
			return err
		}
		if err := os.WriteFile(boardOut, png, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", boardOut, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", boardOut, len(png))
		return nil
	},
}

var roundsCmd = &cobra.Command{
	Use:   "rounds <tourId>",
	Short: "Print the rounds of a broadcast with their status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := appcfg.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		dash := dashboard.New(newUpstream(cfg, nil))
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.LichessTimeout*time.Duration(cfg.LichessRetries+1))
		defer cancel()
		t, err := dash.Tournament(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", t.Name)
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ROUND\tID\tSTATUS\tSTARTS")
		for _, r := range t.Rounds {
			starts := "-"
			if r.StartsAt != nil {
				starts = r.StartsAt.Local().Format("2006-01-02 15:04")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.ID, r.Badge, starts)
		}
		return tw.Flush()
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the Lichess API with the configured client",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := appcfg.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		m := metrics.New()
		client := newUpstream(cfg, m)
		out := cmd.OutOrStdout()

		ctx, cancel := context.WithTimeout(cmd.Context(), checkWait)
		defer cancel()

		start := time.Now()
		top, err := client.TopBroadcasts(ctx, 1)
		if err != nil {
			return fmt.Errorf("/broadcast/top: %w", err)
		}
		fmt.Fprintf(out, "/broadcast/top ok in %s: active=%d upcoming=%d past=%d\n",
			time.Since(start).Round(time.Millisecond), len(top.Active), len(top.Upcoming), len(top.Past.CurrentPageResults))

		start = time.Now()
		list, err := client.Broadcasts(ctx, 5)
		if err != nil {
			return fmt.Errorf("/broadcast: %w", err)
		}
		fmt.Fprintf(out, "/broadcast ok in %s: %d tournaments\n", time.Since(start).Round(time.Millisecond), len(list))
		return nil
	},
}

func init() {
	boardCmd.Flags().StringVarP(&boardOut, "out", "o", "", "output file (default stdout)")
	boardCmd.Flags().BoolVar(&boardFlip, "flip", false, "render from black's side")
	checkCmd.Flags().DurationVar(&checkWait, "timeout", 30*time.Second, "overall probe timeout")
}
