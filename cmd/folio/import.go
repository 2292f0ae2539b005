package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/eringen/folio"
	"github.com/eringen/folio/migrate"
)

var importDryRun bool

var importCmd = &cobra.Command{
	Use:   "import <manifest.yaml>",
	Short: "Import a legacy HTML archive",
	Long: `Converts the pages listed in a YAML manifest into documents, uploads
their images to the configured blob store and upserts the posts by slug.
Failed pages are reported and skipped; the rest of the batch continues.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "convert pages without writing anything")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	m, err := migrate.LoadManifest(args[0])
	if err != nil {
		return err
	}
	cfg := folio.LoadConfig()
	ctx := cmd.Context()

	store, err := folio.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	blobs, err := folio.NewBlobStore(cfg)
	if err != nil {
		return err
	}

	im := &migrate.Importer{
		Store:  store,
		Blobs:  blobs,
		Log:    log.New(cmd.ErrOrStderr(), "import: ", log.LstdFlags),
		DryRun: importDryRun,
	}
	rep, err := im.Run(ctx, m)
	if err != nil {
		return err
	}
	cmd.Printf("Imported %d, skipped %d, failed %d, %d images uploaded.\n",
		rep.Imported, rep.Skipped, rep.Failed, rep.Images)
	return rep.Err()
}
