package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/tinyrange/vmspace/pkg/scenario"
)

var runProgress bool

func printResult(out io.Writer, r *scenario.Runner, res scenario.Result) error {
	if res.Step.Op == "dump" && res.Err == nil {
		return printMappings(out, r.AddressSpace().Mappings())
	}

	_, err := fmt.Fprintln(out, res)
	return err
}

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run a scenario and check every step against its expected outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := scenario.Load(args[0])
		if err != nil {
			return err
		}

		r := scenario.NewRunner(sc.Name, nil)
		defer r.Close()

		r.SetBaseDirectory(filepath.Dir(args[0]))

		var pb *progressbar.ProgressBar
		if runProgress {
			pb = progressbar.Default(int64(len(sc.Steps)), sc.Name)
		}

		start := time.Now()

		if err := r.Run(sc, func(i int, res scenario.Result) {
			if pb != nil {
				pb.Add(1)
				return
			}

			if err := printResult(os.Stdout, r, res); err != nil {
				slog.Warn("failed to print result", "step", i, "error", err)
			}
		}); err != nil {
			return err
		}

		slog.Info("scenario passed", "name", sc.Name, "steps", len(sc.Steps), "took", time.Since(start))

		r.AddressSpace().LogStats()

		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runProgress, "progress", false, "show a progress bar instead of step results")
	rootCmd.AddCommand(runCmd)
}
