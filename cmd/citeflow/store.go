// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citeflow/internal/format"
	"github.com/pdiddy/citeflow/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect citations saved with resolve --save",
	Long: `Store reads the SQLite citation database written by "resolve --save".
Citations with the same DOI share one record; the latest resolution wins.`,
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored citations, most recently updated first",
	RunE:  runStoreList,
}

var storeShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one stored citation and the resolver errors seen with it",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreShow,
}

var storeDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a stored citation",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreDelete,
}

func init() {
	storeCmd.PersistentFlags().String("db", "", "citation database (default from config store.path)")
	storeListCmd.Flags().String("query", "", "only list citations whose title contains this text")
	storeListCmd.Flags().Int("max-results", 50, "maximum number of citations to list")
	storeShowCmd.Flags().String("format", "json", "output format: json, csl, or summary")
	storeShowCmd.Flags().Bool("provenance", false, "include source fragments in JSON output")

	storeCmd.AddCommand(storeListCmd, storeShowCmd, storeDeleteCmd)
	rootCmd.AddCommand(storeCmd)
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Store.Path
	}
	return store.Open(path)
}

func runStoreList(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	query, _ := cmd.Flags().GetString("query")
	limit, _ := cmd.Flags().GetInt("max-results")
	list, err := s.List(cmd.Context(), store.ListOptions{Query: query, Limit: limit})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDOI\tYEAR\tTITLE")
	for _, sum := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", sum.ID, sum.DOI, sum.Year, sum.Title)
	}
	return tw.Flush()
}

func runStoreShow(cmd *cobra.Command, args []string) error {
	formatName, _ := cmd.Flags().GetString("format")
	out, err := format.Parse(formatName)
	if err != nil {
		return err
	}

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := format.WriteErrors(cmd.ErrOrStderr(), rec.Errors); err != nil {
		return err
	}
	withProvenance, _ := cmd.Flags().GetBool("provenance")
	return writeCitation(cmd.OutOrStdout(), out, rec.Citation, withProvenance)
}

func runStoreDelete(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "deleted: %s\n", args[0])
	return nil
}
