package commands

import (
	"fmt"

	"dialog-agent/corpus"

	"github.com/spf13/cobra"
)

var importDryRun bool

// NewImportCmd creates the import command
func NewImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the YAML corpus into Postgres",
		Long: `Load every table and the partners file from the corpus directory and
upsert them into the database named by DATABASE_URL. Set
CORPUS_SOURCE=postgres afterwards to serve from the database.

Examples:
  dialog-agent import --corpus ./data/corpus
  dialog-agent import --dry-run`,
		Args: cobra.NoArgs,
		RunE: runImport,
	}
	cmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate the corpus without writing it")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, logger := app.cfg, app.logger
	ctx := cmd.Context()

	catalog, err := corpus.LoadDir(cfg.CorpusPath, corpus.TableID(cfg.DefaultResponsesTable), logger)
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}

	out := cmd.OutOrStdout()
	if importDryRun {
		fmt.Fprintf(out, "corpus ok: %d tables, %d partners\n", catalog.Len(), len(catalog.Partners()))
		return nil
	}

	store, err := openPostgres(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ImportCatalog(ctx, catalog); err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %d tables, %d partners\n", catalog.Len(), len(catalog.Partners()))
	return nil
}
