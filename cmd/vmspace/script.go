package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/tinyrange/vmspace/pkg/script"
	"go.starlark.net/starlark"
)

var scriptCmd = &cobra.Command{
	Use:   "script <file.star>",
	Short: "Run a Starlark script against fresh address spaces",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := script.New(".", os.Stdout)
		defer s.Close()

		if err := s.ExecFile(args[0]); err != nil {
			if sErr, ok := err.(*starlark.EvalError); ok {
				return errors.New(sErr.Backtrace())
			}

			return err
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(scriptCmd)
}
