// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"

	"github.com/fy-yaml/fy"
)

func newCheckCmd() *cobra.Command {
	var flags commonFlags
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Validate a document, reporting only success or failure via the exit code",
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
				ev, err := p.Parse()
				if err != nil {
					return err
				}
				if ev == nil || ev.Type == fy.StreamEndEvent {
					return nil
				}
			}
		},
	}
	flags.register(cmd)
	return cmd
}
