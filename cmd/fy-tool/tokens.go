// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fy-yaml/fy"
)

func newTokensCmd() *cobra.Command {
	var flags commonFlags
	cmd := &cobra.Command{
		Use:   "tokens [file]",
		Short: "Dump the scanner token stream",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args)
			if err != nil {
				return err
			}
			p := fy.NewParser(flags.options()...)
			defer p.Close()
			if err := p.AddInput(src); err != nil {
				return err
			}
			for {
				tok, err := p.NextToken()
				if err != nil {
					return err
				}
				if tok == nil {
					return nil
				}
				printToken(cmd, tok)
			}
		},
	}
	flags.register(cmd)
	return cmd
}

func printToken(cmd *cobra.Command, tok *fy.Token) {
	out := cmd.OutOrStdout()
	switch tok.Type {
	case fy.ScalarToken:
		fmt.Fprintf(out, "%s %q\n", tok.Type, tok.Value)
	case fy.AnchorToken, fy.AliasToken:
		fmt.Fprintf(out, "%s %s\n", tok.Type, tok.Name)
	case fy.TagToken:
		fmt.Fprintf(out, "%s %s%s\n", tok.Type, tok.Handle, tok.Suffix)
	default:
		fmt.Fprintln(out, tok.Type)
	}
}
