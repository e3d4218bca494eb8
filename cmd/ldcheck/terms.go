// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ldcheck/internal/check"
	"github.com/pdiddy/ldcheck/internal/ldctx"
)

var termsCmd = &cobra.Command{
	Use:   "terms PATH",
	Short: "Print the merged term table of a document's context",
	Long: `Terms composes the top-level @context of a document, followed by any
--context sources, and prints every defined term with the IRI it maps to and
the source that defined it. Terms that a later source redefined with a
different IRI are listed as shadows.`,
	Args: cobra.ExactArgs(1),
	RunE: runTerms,
}

func init() {
	termsCmd.Flags().StringArray("context", nil, "extra context source appended after the document's context; repeatable")
	termsCmd.Flags().Bool("offline", false, "never fetch remote contexts")
	termsCmd.Flags().Bool("json", false, "output the term table as JSON")

	rootCmd.AddCommand(termsCmd)
}

// termTable is the JSON form of the terms output.
type termTable struct {
	Vocab   string         `json:"vocab,omitempty"`
	Sources []string       `json:"sources"`
	Terms   []ldctx.Term   `json:"terms"`
	Shadows []ldctx.Shadow `json:"shadows,omitempty"`
}

func runTerms(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		cfg.Loader.Offline = true
	}
	sources, _ := cmd.Flags().GetStringArray("context")
	chain, err := check.ContextSources(sources)
	if err != nil {
		return err
	}

	e, err := openEnv(cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	checker := check.New(e.loader, check.Options{Logger: e.logger})
	c, err := checker.ComposeFile(cmd.Context(), args[0], chain...)
	if err != nil {
		return err
	}

	table := termTable{
		Sources: c.Sources(),
		Terms:   c.Terms(),
		Shadows: c.Shadows(),
	}
	if v, ok := c.Vocab(); ok {
		table.Vocab = v
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	}
	printTerms(cmd.OutOrStdout(), table)
	return nil
}

func printTerms(w io.Writer, t termTable) {
	fmt.Fprintln(w, "Sources:")
	for i, s := range t.Sources {
		fmt.Fprintf(w, "  %d. %s\n", i+1, s)
	}
	if t.Vocab != "" {
		fmt.Fprintf(w, "Vocab: %s\n", t.Vocab)
	}

	fmt.Fprintf(w, "\n%-30s  %-50s  %s\n", "Term", "IRI", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, term := range t.Terms {
		iri := term.IRI
		switch {
		case term.Null:
			iri = "(null)"
		case term.Reverse:
			iri = "@reverse " + iri
		}
		fmt.Fprintf(w, "%-30s  %-50s  %s\n", term.Name, iri, term.Source)
	}
	fmt.Fprintf(w, "\n%d terms\n", len(t.Terms))

	if len(t.Shadows) == 0 {
		return
	}
	fmt.Fprintln(w, "\nShadowed:")
	for _, s := range t.Shadows {
		fmt.Fprintf(w, "  %s: %s (%s) -> %s (%s)\n", s.Term, s.Previous, s.PreviousSource, s.Current, s.Source)
	}
}
