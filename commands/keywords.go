package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var keywordsPartner string

// NewKeywordsCmd creates the keywords command
func NewKeywordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords [sentence]",
		Short: "Show the keywords extracted from a sentence",
		Long: `Spell correct a sentence against the corpus vocabulary and print the
keywords TF-IDF picks from it, most significant first.

Example:
  dialog-agent keywords "where can i by a sowrd"`,
		Args: cobra.ExactArgs(1),
		RunE: runKeywords,
	}
	cmd.Flags().StringVarP(&keywordsPartner, "partner", "p", "cli", "Partner the sentence is addressed to")
	return cmd
}

func runKeywords(cmd *cobra.Command, args []string) error {
	rel, err := cliRelationship("", keywordsPartner)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cmd.Context(), app.cfg, app.logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	kws, err := rt.engine.GenerateKeywords(cmd.Context(), rel, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(kws, " "))
	return nil
}
