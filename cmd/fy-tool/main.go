// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

// fy-tool is the ancillary command-line tool spec.md §1's Purpose
// paragraph mentions and scopes out of CORE. It exercises the scanner
// and parser through a binary without an emitter: "tokens" dumps the
// token stream, "events" dumps the event stream, "check" only reports
// success/failure via its exit code. Built with cobra/pflag, the stack
// SPEC_FULL.md's AMBIENT STACK section names for the CLI.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fy-yaml/fy"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fy-tool",
		Short:         "Inspect the fy YAML scanner/parser token and event streams",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newTokensCmd(), newEventsCmd(), newCheckCmd())
	return root
}

// commonFlags are the handful of §6 parser flags worth exposing on the
// CLI; the rest of the bit-field is reachable only through the library.
type commonFlags struct {
	allowDuplicateKeys bool
	sloppyFlowIndent   bool
	jsonForce          bool
	tabSize            int
}

func (f *commonFlags) register(cmd *cobra.Command) {
	f.registerSet(cmd.Flags())
}

func (f *commonFlags) registerSet(fs *pflag.FlagSet) {
	fs.BoolVar(&f.allowDuplicateKeys, "allow-duplicate-keys", false, "tolerate duplicate mapping keys")
	fs.BoolVar(&f.sloppyFlowIndent, "sloppy-flow-indentation", false, "relax flow-collection indentation checks")
	fs.BoolVar(&f.jsonForce, "json", false, "force strict JSON compatibility mode")
	fs.IntVar(&f.tabSize, "tab-size", 0, "tab width in columns (0 = YAML rules: tabs illegal in indentation)")
}

func (f *commonFlags) options() []fy.Option {
	var flags []fy.Flag
	if f.allowDuplicateKeys {
		flags = append(flags, fy.FlagAllowDuplicateKeys)
	}
	if f.sloppyFlowIndent {
		flags = append(flags, fy.FlagSloppyFlowIndentation)
	}
	if f.jsonForce {
		flags = append(flags, fy.FlagJSONForce)
	}
	opts := []fy.Option{fy.WithTabSize(f.tabSize)}
	if len(flags) > 0 {
		opts = append(opts, fy.WithFlags(flags...))
	}
	return opts
}

func readSource(args []string) (fy.Source, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fy.Source{}, err
		}
		return fy.NewAllocSource("<stdin>", data), nil
	}
	return fy.NewFileSource(args[0]), nil
}
