package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var rootVerbose bool

var rootCmd = &cobra.Command{
	Use:   "vmspace",
	Short: "Simulate a virtual address space backed by files and buffers",
	Long: `vmspace keeps a simulated 64-bit virtual address space made of page aligned
mappings onto backing sources. Drive it with a YAML scenario, a Starlark
script or an interactive shell.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		w := os.Stderr

		level := slog.LevelInfo
		if rootVerbose {
			level = slog.LevelDebug
		}

		slog.SetDefault(slog.New(
			tint.NewHandler(w, &tint.Options{
				Level:      level,
				TimeFormat: time.Kitchen,
				NoColor:    !isatty.IsTerminal(w.Fd()),
			}),
		))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "log every mapping change")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
