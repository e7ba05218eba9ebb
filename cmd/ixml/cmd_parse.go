package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dhamidi/ixml/grammar"
	"github.com/dhamidi/ixml/parse"
	"github.com/dhamidi/ixml/xml"
	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	var grammarFile string
	var report bool
	var maxDepth int
	var seedLimit int

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse an input document against a grammar and print it as XML",
		Long: `Parse reads an input document (from a file or stdin), parses it
against the grammar given with --grammar, and prints the resulting
XML document on stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGrammar(grammarFile)
			if err != nil {
				return err
			}

			opts := []parse.Option{}
			if maxDepth > 0 {
				opts = append(opts, parse.WithMaxDepth(maxDepth))
			}
			if seedLimit > 0 {
				opts = append(opts, parse.WithSeedLimit(seedLimit))
			}

			parser, err := parse.New(g, opts...)
			if err != nil {
				return fmt.Errorf("compile grammar: %w", err)
			}

			if report {
				fmt.Fprintln(os.Stderr, parser.Analysis().Report())
			}

			input, err := readInput(args)
			if err != nil {
				return err
			}

			node, err := parser.Parse(input)

			var trailing *parse.TrailingInputError
			if errors.As(err, &trailing) {
				fmt.Println(xml.Marshal(node))
				return fmt.Errorf("matched %d of %d codepoints: %s",
					trailing.Consumed, len([]rune(input)), parse.FormatWithInput(err, input))
			}
			if err != nil {
				return errors.New(parse.FormatWithInput(err, input))
			}

			fmt.Println(xml.Marshal(node))
			return nil
		},
	}

	cmd.Flags().StringVarP(&grammarFile, "grammar", "g", "", "grammar file in ixml notation (required)")
	cmd.Flags().BoolVar(&report, "report", false, "print the grammar analysis report on stderr")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "override the rule nesting limit")
	cmd.Flags().IntVar(&seedLimit, "seed-limit", 0, "override the left recursion iteration limit")
	cmd.MarkFlagRequired("grammar")

	return cmd
}

func loadGrammar(filename string) (*grammar.Grammar, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read grammar: %w", err)
	}
	g, err := grammar.ParseString(filename, string(data))
	if err != nil {
		return nil, fmt.Errorf("parse grammar: %w", err)
	}
	return g, nil
}

func readInput(args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}
