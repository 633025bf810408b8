// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citeflow/internal/citation"
	"github.com/pdiddy/citeflow/internal/document"
	"github.com/pdiddy/citeflow/internal/format"
	"github.com/pdiddy/citeflow/internal/httputil"
	"github.com/pdiddy/citeflow/internal/resolve"
	"github.com/pdiddy/citeflow/internal/resolvers"
	"github.com/pdiddy/citeflow/internal/store"
	"github.com/pdiddy/citeflow/pkg/types"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [identifiers...]",
	Short: "Run identify, expand, and dereference and print the merged citation",
	Long: `Resolve starts from the identifiers, title, seed file, or document given and
runs every resolver. Identifiers may be given positionally in any common
form ("doi:10.1/x", "https://doi.org/10.1/x", "arXiv:2301.07041",
"PMC3531190", "23193287"). Resolver failures are reported on stderr and do
not stop resolution.`,
	RunE: runPurposes(),
}

var identifyCmd = &cobra.Command{
	Use:   "identify [identifiers...]",
	Short: "Find identifiers for a paper (DOI from a title or document)",
	RunE:  runPurposes(resolve.Identify),
}

var expandCmd = &cobra.Command{
	Use:   "expand [identifiers...]",
	Short: "Fetch metadata for known identifiers",
	RunE:  runPurposes(resolve.Expand),
}

var dereferenceCmd = &cobra.Command{
	Use:   "dereference [identifiers...]",
	Short: "Collect article and full-text links for known identifiers",
	RunE:  runPurposes(resolve.Dereference),
}

func init() {
	for _, cmd := range []*cobra.Command{resolveCmd, identifyCmd, expandCmd, dereferenceCmd} {
		cmd.Flags().String("doi", "", "DOI of the paper")
		cmd.Flags().String("title", "", "title of the paper")
		cmd.Flags().String("arxiv", "", "arXiv ID of the paper")
		cmd.Flags().String("pmid", "", "PubMed ID of the paper")
		cmd.Flags().String("pmcid", "", "PubMed Central ID of the paper")
		cmd.Flags().String("seed", "", "JSON or YAML file holding one or more starting fragments")
		cmd.Flags().String("pdf", "", "PDF of the paper to search for identifiers")
		cmd.Flags().Int("pdf-pages", document.DefaultMaxPages, "number of PDF pages to read")
		cmd.Flags().String("text", "", "plain-text file of the paper to search for identifiers")
		cmd.Flags().String("format", "json", "output format: json, csl, or summary")
		cmd.Flags().Bool("provenance", false, "include source fragments in JSON output")
		cmd.Flags().Bool("save", false, "store the merged citation in the citation database")
		cmd.Flags().StringSlice("disable", nil, "resolvers to skip (e.g. resolvers.Publisher)")
		rootCmd.AddCommand(cmd)
	}
}

// runPurposes returns a RunE that resolves the requested purposes, or all
// of them when none are given.
func runPurposes(purposes ...resolve.Purpose) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var f seedFlags
		f.DOI, _ = cmd.Flags().GetString("doi")
		f.Title, _ = cmd.Flags().GetString("title")
		f.Arxiv, _ = cmd.Flags().GetString("arxiv")
		f.PubMed, _ = cmd.Flags().GetString("pmid")
		f.PMC, _ = cmd.Flags().GetString("pmcid")
		f.Seed, _ = cmd.Flags().GetString("seed")

		seeds, err := buildSeeds(f, args)
		if err != nil {
			return err
		}

		doc, err := openDocument(cmd)
		if err != nil {
			return err
		}
		if len(seeds) == 0 && doc == nil {
			return fmt.Errorf("provide an identifier, --title, --seed, --pdf, or --text")
		}

		formatName, _ := cmd.Flags().GetString("format")
		out, err := format.Parse(formatName)
		if err != nil {
			return err
		}

		disabled, _ := cmd.Flags().GetStringSlice("disable")
		cfg.Resolution.Disabled = append(cfg.Resolution.Disabled, disabled...)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var d resolve.Document
		if doc != nil {
			d = doc
		}
		res, err := newPipeline(cfg).Resolve(ctx, seeds, d, purposes...)
		if err != nil {
			return err
		}

		stderr := cmd.ErrOrStderr()
		if err := format.WriteErrors(stderr, res.Errors()); err != nil {
			return err
		}

		withProvenance, _ := cmd.Flags().GetBool("provenance")
		if err := writeCitation(cmd.OutOrStdout(), out, res.Citation, withProvenance); err != nil {
			return err
		}

		if save, _ := cmd.Flags().GetBool("save"); save {
			return saveCitation(ctx, cfg.Store, res, stderr)
		}
		return nil
	}
}

// newPipeline wires every resolver into a pipeline configured by cfg.
func newPipeline(cfg types.Config) *resolve.Pipeline {
	client := httputil.NewClient(
		httputil.WithUserAgent(cfg.HTTP.UserAgent),
		httputil.WithMaxRetries(cfg.HTTP.MaxRetries),
		httputil.WithRateLimit(cfg.HTTP.RequestsPerSecond, int(cfg.HTTP.RequestsPerSecond)),
		httputil.WithHTTPClient(&http.Client{Timeout: cfg.HTTP.Timeout}),
		httputil.WithLogger(logger),
	)

	reg := resolve.NewRegistry(resolvers.All(resolvers.Config{
		Client:     client,
		Email:      cfg.Sources.ContactEmail,
		NCBIAPIKey: cfg.Sources.NCBIAPIKey,
		Logger:     logger,
	})...)
	reg.Disable(cfg.Resolution.Disabled...)

	return resolve.New(reg,
		resolve.WithLogger(logger),
		resolve.WithSelector(citation.NewSelector(citation.SourceOrder(cfg.Resolution.SourceOrder), cfg.Resolution.Mergeable...)),
		resolve.WithWorkers(cfg.Resolution.Workers),
		resolve.WithTimeout(cfg.Resolution.ResolverTimeout),
	)
}

// openDocument loads the --pdf or --text document, or returns nil.
func openDocument(cmd *cobra.Command) (*document.Text, error) {
	pdfPath, _ := cmd.Flags().GetString("pdf")
	textPath, _ := cmd.Flags().GetString("text")
	switch {
	case pdfPath != "" && textPath != "":
		return nil, fmt.Errorf("give either --pdf or --text, not both")
	case pdfPath != "":
		pages, _ := cmd.Flags().GetInt("pdf-pages")
		return document.OpenPDF(pdfPath, pages)
	case textPath != "":
		data, err := os.ReadFile(textPath)
		if err != nil {
			return nil, fmt.Errorf("reading text file: %w", err)
		}
		return document.NewText(string(data)), nil
	default:
		return nil, nil
	}
}

func writeCitation(w io.Writer, f format.Format, c citation.Citation, withProvenance bool) error {
	if f == format.JSON {
		return format.WriteJSON(w, c, withProvenance)
	}
	return format.Write(w, f, c)
}

func saveCitation(ctx context.Context, cfg types.StoreConfig, res *resolve.Result, progress io.Writer) error {
	s, err := store.Open(cfg.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.Put(ctx, res.Citation, res.Errors())
	if err != nil {
		return err
	}
	fmt.Fprintf(progress, "stored: %s\n", rec.ID)
	return nil
}
