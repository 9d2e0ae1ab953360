package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/taxon-cli/internal/dataset"
	"github.com/sells-group/taxon-cli/internal/handoff"
	"github.com/sells-group/taxon-cli/internal/model"
	"github.com/sells-group/taxon-cli/internal/reconcile"
	"github.com/sells-group/taxon-cli/internal/store"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a dataset against the taxonomy search",
	Long:  "Loads a dataset directory, reconciles every eligible taxon in order, queues unique matches for submission, and records the run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("reconcile"); err != nil {
			return err
		}

		dir, _ := cmd.Flags().GetString("dataset")
		if dir == "" {
			dir = cfg.Dataset.Dir
		}
		limit, _ := cmd.Flags().GetInt("limit")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		reportPath, _ := cmd.Flags().GetString("report")

		ds, err := dataset.Load(ctx, dir)
		if err != nil {
			return eris.Wrap(err, "reconcile: load dataset")
		}
		records := ds.Records
		if limit > 0 && limit < len(records) {
			records = records[:limit]
		}

		engine := initEngine(cfg.Search)
		provider, err := initProvider(cfg.Search, engine.Classifier().Taxonomy())
		if err != nil {
			return err
		}

		// Dry runs never touch the store.
		var (
			st  store.Store
			run *model.Run
		)
		if !dryRun {
			s, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck
			if err := s.Migrate(ctx); err != nil {
				return err
			}
			st = s
			run, err = s.CreateRun(ctx, ds.Dir)
			if err != nil {
				return eris.Wrap(err, "reconcile: create run")
			}
		}

		sink, collector, err := initSink(st, cfg.Handoff, dryRun)
		if err != nil {
			return err
		}

		rec := reconcile.New(provider, engine, sink, ds.Policy)
		sum := rec.RunBatch(ctx, records)

		if run != nil {
			status := model.RunStatusComplete
			if sum.Cancelled {
				status = model.RunStatusAborted
			}
			// The batch context may already be cancelled; the run row is
			// still closed out.
			if err := st.FinishRun(context.WithoutCancel(ctx), run.ID, status, sum.Counts); err != nil {
				return eris.Wrap(err, "reconcile: finish run")
			}
		}

		rep := batchReport{
			Dataset:    ds.Dir,
			DryRun:     dryRun,
			Summary:    sum,
			DataErrors: ds.Errors,
		}
		if run != nil {
			rep.RunID = run.ID
		}
		if collector != nil {
			rep.Handoffs = collector.Matches()
		}

		if reportPath != "" {
			if err := writeReportFile(reportPath, cfg.Report.Format, rep); err != nil {
				return err
			}
			zap.L().Info("reconcile: report written", zap.String("path", reportPath))
		}

		formatSummary(os.Stdout, rep)
		if sum.Cancelled {
			return eris.New("reconcile: batch cancelled")
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().String("dataset", "", "dataset directory (default from config)")
	reconcileCmd.Flags().Int("limit", 0, "reconcile at most N records (0 = all)")
	reconcileCmd.Flags().Bool("dry-run", false, "collect unique matches without writing to the store")
	reconcileCmd.Flags().String("report", "", "write the full batch report to FILE (.yaml or .json)")
	rootCmd.AddCommand(reconcileCmd)
}

// batchReport is the document written by --report.
type batchReport struct {
	RunID      string              `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Dataset    string              `json:"dataset" yaml:"dataset"`
	DryRun     bool                `json:"dry_run" yaml:"dry_run"`
	Summary    reconcile.Summary   `json:"summary" yaml:"summary"`
	DataErrors []dataset.DataError `json:"data_errors,omitempty" yaml:"data_errors,omitempty"`
	Handoffs   []handoff.Match     `json:"handoffs,omitempty" yaml:"handoffs,omitempty"`
}

// formatSummary writes the run counts and the records needing review to w.
func formatSummary(out io.Writer, rep batchReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	c := rep.Summary.Counts
	if rep.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run:\t%s\n", rep.RunID)
	}
	_, _ = fmt.Fprintf(w, "Dataset:\t%s\n", rep.Dataset)
	_, _ = fmt.Fprintf(w, "Total:\t%d\n", c.Total)
	_, _ = fmt.Fprintf(w, "Matched:\t%d\n", c.Matched)
	_, _ = fmt.Fprintf(w, "Already assigned:\t%d\n", c.AlreadyAssigned)
	_, _ = fmt.Fprintf(w, "Not found:\t%d\n", c.NotFound)
	_, _ = fmt.Fprintf(w, "Ambiguous:\t%d\n", c.Ambiguous)
	_, _ = fmt.Fprintf(w, "Skipped:\t%d\n", c.Skipped)
	if len(rep.DataErrors) > 0 {
		_, _ = fmt.Fprintf(w, "Dropped rows:\t%d\n", len(rep.DataErrors))
	}
	if rep.DryRun {
		_, _ = fmt.Fprintf(w, "Dry run matches:\t%d\n", len(rep.Handoffs))
	}
	if rep.Summary.Cancelled {
		_, _ = fmt.Fprintln(w, "Cancelled:\tyes")
	}
	_ = w.Flush()

	var review []reconcile.Report
	for _, r := range rep.Summary.Reports {
		if r.HandoffError != "" || (r.Status == model.RecordNotFound && r.Reason == reconcile.ReasonAmbiguous) {
			review = append(review, r)
		}
	}
	if len(review) == 0 {
		return
	}

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tSCIENTIFIC\tCOMMON\tREASON")
	_, _ = fmt.Fprintln(w, "----\t----------\t------\t------")
	for _, r := range review {
		reason := string(r.Reason)
		if r.HandoffError != "" {
			reason = "handoff_failed"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Record.Rank, r.Record.ScientificName, r.Record.CommonName, reason)
	}
	_ = w.Flush()
}
