package main

import (
	"fmt"
	"os"

	"github.com/dhamidi/ixml/grammar"
	"github.com/spf13/cobra"
)

func newTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens <grammar>",
		Short: "Dump the lexical tokens of a grammar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read grammar: %w", err)
			}

			tokens, err := grammar.NewLexer(args[0], string(data)).Tokenize()
			if err != nil {
				return fmt.Errorf("tokenize: %w", err)
			}

			for _, tok := range tokens {
				fmt.Println(tok)
			}
			return nil
		},
	}

	return cmd
}
