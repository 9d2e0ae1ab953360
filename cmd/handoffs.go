package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/taxon-cli/internal/model"
	"github.com/sells-group/taxon-cli/internal/store"
)

var handoffsCmd = &cobra.Command{
	Use:   "handoffs",
	Short: "Inspect the common name hand-off queue",
	Long:  "Commands for listing queued common names and marking them submitted.",
}

var handoffsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued hand-offs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		if err := validHandoffStatus(status); err != nil {
			return err
		}

		hs, err := st.ListHandoffs(ctx, store.HandoffFilter{
			Status: model.HandoffStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "handoffs list")
		}

		if len(hs) == 0 {
			fmt.Fprintln(os.Stderr, "No hand-offs found.")
			return nil
		}

		formatHandoffsList(os.Stdout, hs)
		return nil
	},
}

var handoffsShowCmd = &cobra.Command{
	Use:   "show <handoff-id>",
	Short: "Show full details of a hand-off",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		h, err := st.GetHandoff(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "handoffs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(h)
	},
}

var handoffsSubmittedCmd = &cobra.Command{
	Use:   "submitted <handoff-id>",
	Short: "Mark a hand-off as submitted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if err := st.MarkHandoffSubmitted(ctx, args[0]); err != nil {
			return eris.Wrap(err, "handoffs submitted")
		}
		fmt.Fprintf(os.Stdout, "Marked %s submitted.\n", args[0])
		return nil
	},
}

func init() {
	handoffsListCmd.Flags().String("status", "", "filter by status (pending, submitted)")
	handoffsListCmd.Flags().Int("limit", 50, "max number of hand-offs to display")

	handoffsCmd.AddCommand(handoffsListCmd)
	handoffsCmd.AddCommand(handoffsShowCmd)
	handoffsCmd.AddCommand(handoffsSubmittedCmd)
	rootCmd.AddCommand(handoffsCmd)
}

func validHandoffStatus(s string) error {
	switch model.HandoffStatus(s) {
	case "", model.HandoffPending, model.HandoffSubmitted:
		return nil
	}
	return eris.Errorf("invalid hand-off status %q (want pending or submitted)", s)
}

// formatHandoffsList writes a tabular list of hand-offs to w.
func formatHandoffsList(out io.Writer, hs []model.Handoff) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTAXON\tSCIENTIFIC\tCOMMON\tSTATUS\tAUTO\tEDIT_URL")
	_, _ = fmt.Fprintln(w, "--\t-----\t----------\t------\t------\t----\t--------")

	for _, h := range hs {
		auto := ""
		if h.AutoSubmit {
			auto = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(h.ID),
			h.TaxonID,
			h.ScientificName,
			h.CommonName,
			h.Status,
			auto,
			h.EditURL,
		)
	}
	_ = w.Flush()
}
