package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rjrizani/zyte-api-training/internal/recipe"
)

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "List the recipes in the configured recipe file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		book, err := recipe.Load(cfg.Recipes.Path)
		if err != nil {
			return err
		}
		formatRecipes(os.Stdout, book.List())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recipesCmd)
}

func formatRecipes(out io.Writer, recipes []*recipe.Recipe) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tMODE\tFETCH\tPARAMS\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "----\t----\t-----\t------\t-----------")
	for _, r := range recipes {
		mode := string(r.Mode)
		if mode == "" {
			mode = string(recipe.ModeLink)
		}
		fetchKind := r.Fetch
		if fetchKind == "" {
			fetchKind = recipe.FetchBrowser
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.Name, mode, fetchKind, strings.Join(r.Placeholders(), ","), r.Description)
	}
	_ = w.Flush()
}
