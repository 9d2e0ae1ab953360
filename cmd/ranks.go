package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/taxon-cli/internal/rank"
)

var ranksCmd = &cobra.Command{
	Use:   "ranks",
	Short: "Print the rank to display token table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		formatRanks(os.Stdout, rank.Default())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ranksCmd)
}

// formatRanks writes every rank with its token and dataset columns to w.
func formatRanks(out io.Writer, tax *rank.Taxonomy) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tTOKEN\tSCIENTIFIC_COLUMN\tCOMMON_COLUMN")
	_, _ = fmt.Fprintln(w, "----\t-----\t-----------------\t-------------")
	for _, r := range rank.All {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r, tax.DisplayToken(r), rank.ScientificField(r), rank.CommonField(r))
	}
	_ = w.Flush()
}
