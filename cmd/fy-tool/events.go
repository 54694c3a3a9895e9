// Copyright 2025 The go-yaml Project Contributors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fy-yaml/fy"
)

func newEventsCmd() *cobra.Command {
	var flags commonFlags
	cmd := &cobra.Command{
		Use:   "events [file]",
		Short: "Dump the parser event stream",
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
			out := cmd.OutOrStdout()
			depth := 0
			for {
				ev, err := p.Parse()
				if err != nil {
					return err
				}
				if ev == nil {
					return nil
				}
				switch ev.Type {
				case fy.SequenceEndEvent, fy.MappingEndEvent, fy.DocumentEndEvent:
					depth--
				}
				printEvent(out, ev, depth)
				switch ev.Type {
				case fy.SequenceStartEvent, fy.MappingStartEvent, fy.DocumentStartEvent:
					depth++
				case fy.StreamEndEvent:
					return nil
				}
			}
		},
	}
	flags.register(cmd)
	return cmd
}

func printEvent(out io.Writer, ev *fy.Event, depth int) {
	for i := 0; i < depth; i++ {
		fmt.Fprint(out, "  ")
	}
	fmt.Fprint(out, ev.Type)
	if anchor := ev.Anchor(); anchor != "" {
		fmt.Fprintf(out, " &%s", anchor)
	}
	if tag := ev.Tag(); tag != "" {
		fmt.Fprintf(out, " <%s>", tag)
	}
	if ev.Type == fy.ScalarEvent || ev.Type == fy.AliasEvent {
		fmt.Fprintf(out, " %q", ev.Value())
	}
	fmt.Fprintln(out)
}
