package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/anmitsu/go-shlex"
	"github.com/spf13/cobra"
	"github.com/tinyrange/vmspace/pkg/scenario"
	"github.com/wader/readline"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	ErrExit = fmt.Errorf("exit")
)

type shellInstance struct {
	rl     *readline.Instance
	runner *scenario.Runner
	out    io.Writer
}

func (sh *shellInstance) sourceNames(string) []string {
	return sh.runner.Sources()
}

func (sh *shellInstance) labelNames(string) []string {
	ret := maps.Keys(sh.runner.Labels())

	slices.Sort(ret)

	return ret
}

func (sh *shellInstance) getCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("exit"),
		readline.PcItem("help"),
		readline.PcItem("labels"),
		readline.PcItem("sources"),
		readline.PcItem("source"),
		readline.PcItem("map", readline.PcItemDynamic(sh.sourceNames)),
		readline.PcItem("map_at", readline.PcItemDynamic(sh.sourceNames)),
		readline.PcItem("unmap", readline.PcItem("-", readline.PcItemDynamic(sh.labelNames)), readline.PcItemDynamic(sh.sourceNames)),
		readline.PcItem("resolve", readline.PcItemDynamic(sh.labelNames)),
		readline.PcItem("read", readline.PcItemDynamic(sh.labelNames)),
		readline.PcItem("dump"),
		readline.PcItem("stats"),
		readline.PcItem("verify"),
	)
}

func (sh *shellInstance) processLine(line string) error {
	line = strings.Trim(line, " ")

	tokens, err := shlex.Split(line, true)
	if err != nil {
		return err
	}

	if len(tokens) == 0 {
		return nil
	}

	switch tokens[0] {
	case "exit":
		return ErrExit
	case "help":
		for _, usage := range scenario.Usage {
			fmt.Fprintln(sh.out, usage)
		}

		return nil
	case "sources":
		for _, name := range sh.runner.Sources() {
			fmt.Fprintln(sh.out, name)
		}

		return nil
	case "labels":
		labels := sh.runner.Labels()

		for _, name := range sh.labelNames("") {
			fmt.Fprintf(sh.out, "%s = %s\n", name, labels[name])
		}

		return nil
	}

	cmd, err := scenario.ParseCommand(tokens)
	if err != nil {
		return err
	}

	if cmd.Source != nil {
		h, err := sh.runner.AddSource(*cmd.Source)
		if err != nil {
			return err
		}

		fmt.Fprintf(sh.out, "source %s: %d bytes\n", h, h.Size())

		return nil
	}

	res, err := sh.runner.Exec(*cmd.Step)
	if err != nil {
		return err
	}

	return printResult(sh.out, sh.runner, res)
}

func (sh *shellInstance) updatePrompt() {
	sh.rl.SetPrompt(fmt.Sprintf("%s [%d] \033[94m> \033[0m", sh.runner.AddressSpace().Name(), sh.runner.AddressSpace().Len()))
}

var shellName string

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactively map, unmap and resolve addresses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var err error

		sh := &shellInstance{runner: scenario.NewRunner(shellName, nil), out: os.Stdout}
		defer sh.runner.Close()

		sh.rl, err = readline.NewEx(&readline.Config{
			Prompt:       "\033[94m> \033[0m",
			AutoComplete: sh.getCompleter(),
		})
		if err != nil {
			return err
		}
		defer sh.rl.Close()

		sh.updatePrompt()

		for {
			line, err := sh.rl.Readline()
			if err == readline.ErrInterrupt {
				continue
			} else if err != nil {
				return nil
			}

			err = sh.processLine(line)
			if err == ErrExit {
				break
			} else if err != nil {
				slog.Error("", "error", err)
			}

			sh.updatePrompt()

			sh.rl.Refresh()
		}

		return nil
	},
}

func init() {
	shellCmd.Flags().StringVar(&shellName, "name", "shell", "name of the address space")
	rootCmd.AddCommand(shellCmd)
}
