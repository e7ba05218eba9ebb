package main

import (
	"fmt"

	"github.com/dhamidi/ixml/parse"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <grammar>",
		Short: "Analyze a grammar and report ambiguity and recursion findings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGrammar(args[0])
			if err != nil {
				return err
			}

			analysis := parse.Analyze(g)
			fmt.Println(analysis.Report())

			if analysis.Ambiguous {
				return fmt.Errorf("grammar may be ambiguous")
			}
			return nil
		},
	}

	return cmd
}
