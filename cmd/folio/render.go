package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/eringen/folio"
	"github.com/eringen/folio/document"
	"github.com/eringen/folio/storage"
)

var (
	renderFormat string
	renderSlug   string
)

var renderCmd = &cobra.Command{
	Use:   "render <page.html|->",
	Short: "Convert one HTML page and print the result",
	Long: `Ingests an exported HTML page and prints the document as JSON, the
rendered HTML, or its table of contents. With --slug, relative image sources
are resolved against the configured blob store.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "json", "output format: json, html or toc")
	renderCmd.Flags().StringVar(&renderSlug, "slug", "", "post slug used to resolve image URLs")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	var src []byte
	var err error
	if args[0] == "-" {
		src, err = io.ReadAll(cmd.InOrStdin())
	} else {
		src, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}
	doc := document.FromHTML(string(src))
	out := cmd.OutOrStdout()

	switch renderFormat {
	case "json":
		b, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	case "html":
		r := document.Renderer{Anchors: true}
		if renderSlug != "" {
			blobs, err := folio.NewBlobStore(folio.LoadConfig())
			if err != nil {
				return err
			}
			r.ResolveAsset = storage.Resolver(blobs, renderSlug)
		}
		_, err := fmt.Fprintln(out, r.Render(doc))
		return err
	case "toc":
		for _, h := range document.ExtractHeadings(doc) {
			fmt.Fprintf(out, "%*s- %s (#%s)\n", (h.Level-1)*2, "", h.Text, h.ID)
		}
		return nil
	}
	return fmt.Errorf("unknown format %q", renderFormat)
}
