package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"NewsMerger/internal/app"
	"NewsMerger/internal/domain"
	"NewsMerger/internal/usecase"
)

func scrapeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Scrape every configured source into new scrape artifacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				res, err := a.Pipeline().Scrape(ctx)
				renderSummaries(cmd.OutOrStdout(), res.Summary)
				return err
			})
		},
	}
}

func mergeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Normalize and deduplicate the latest scrape of every source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				res, err := a.Pipeline().Merge(ctx)
				if err != nil {
					return err
				}
				s := res.Artifact.Stats
				fmt.Fprintf(cmd.OutOrStdout(), "merge %s: %d in, %d unique, %d duplicates removed (threshold %.2f)\n",
					res.Ref.ID, s.TotalInput, s.TotalUnique, s.DuplicatesRemoved, s.Threshold)
				renderSummaries(cmd.OutOrStdout(), res.Summary)
				return nil
			})
		},
	}
}

func enrichCommand() *cobra.Command {
	var (
		number int
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich one batch (--batch N) or the whole merge (--all)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all == (number > 0) {
				return errors.New("pass exactly one of --batch N or --all")
			}
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				var (
					res usecase.EnrichResult
					err error
				)
				if all {
					res, err = a.Pipeline().EnrichAll(ctx)
				} else {
					res, err = a.Pipeline().EnrichBatch(ctx, number)
				}
				renderSummaries(cmd.OutOrStdout(), res.Summary)
				if err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "artifact %s\n", res.Ref.ID)
				}
				return err
			})
		},
	}
	cmd.Flags().IntVar(&number, "batch", 0, "1-based batch number")
	cmd.Flags().BoolVar(&all, "all", false, "enrich every article in one run")
	return cmd
}

func uploadCommand() *cobra.Command {
	var number int
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upsert enriched articles into the destination store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				var (
					res usecase.UploadResult
					err error
				)
				if number > 0 {
					res, err = a.Pipeline().UploadBatch(ctx, number)
				} else {
					res, err = a.Pipeline().Upload(ctx)
				}
				renderSummaries(cmd.OutOrStdout(), res.Summary)
				fmt.Fprintf(cmd.OutOrStdout(), "%d inserted, %d updated from %d artifact(s)\n", res.Inserted, res.Updated, len(res.Refs))
				return err
			})
		},
	}
	cmd.Flags().IntVar(&number, "batch", 0, "upload only this batch")
	return cmd
}

func runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run scrape, merge, enrich --all and upload once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				report, err := a.Pipeline().RunAll(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), usecase.FormatReport(report))
				return err
			})
		},
	}
}

func scheduleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the full pipeline on the configured cron expression and serve /metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				return a.Schedule(ctx)
			})
		},
	}
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stored artifacts and what an upload would use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				st, err := a.Pipeline().Status(ctx)
				if err != nil {
					return err
				}
				renderStatus(cmd.OutOrStdout(), st, a.Pipeline().BatchCount())
				return nil
			})
		},
	}
}

func renderSummaries(w io.Writer, summaries ...domain.StageSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Stage", "Processed", "Skipped", "Failed", "Missing batches"})

	var failures []domain.ArticleFailure
	for _, s := range summaries {
		t.AppendRow(table.Row{s.Stage, s.Processed, s.Skipped, s.Failed, joinInts(s.Missing)})
		failures = append(failures, s.Failures...)
	}
	t.Render()

	if len(failures) == 0 {
		return
	}
	ft := table.NewWriter()
	ft.SetOutputMirror(w)
	ft.SetStyle(table.StyleLight)
	ft.AppendHeader(table.Row{"Stage", "URL", "Reason"})
	for _, f := range failures {
		ft.AppendRow(table.Row{f.Stage, f.URL, f.Reason})
	}
	ft.Render()
}

func renderStatus(w io.Writer, st usecase.Status, batchCount int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Kind", "Count", "Latest", "Created"})
	for _, k := range st.Artifacts {
		if len(k.Latest) == 0 {
			t.AppendRow(table.Row{k.Kind, k.Count, "-", "-"})
			continue
		}
		for _, ref := range k.Latest {
			t.AppendRow(table.Row{k.Kind, k.Count, slotLabel(ref), ref.CreatedAt.Format(time.RFC3339)})
		}
	}
	t.Render()

	switch {
	case st.Enrichment == nil:
		fmt.Fprintln(w, "upload input: none")
	case st.Enrichment.Complete != nil:
		fmt.Fprintf(w, "upload input: complete artifact %s\n", st.Enrichment.Complete.ID)
	default:
		fmt.Fprintf(w, "upload input: %d of %d batches, missing [%s]\n",
			len(st.Enrichment.Batches), batchCount, joinInts(st.Enrichment.Missing))
	}
	if st.Enrichment != nil && len(st.Enrichment.Stale) > 0 {
		fmt.Fprintf(w, "stale enrichment artifacts skipped: %d\n", len(st.Enrichment.Stale))
	}
	fmt.Fprintf(w, "latest merge: %d articles, %d already stored\n", st.MergedArticles, st.StoredArticles)
}

func slotLabel(ref domain.ArtifactRef) string {
	switch {
	case ref.Source != "":
		return fmt.Sprintf("%s (%s)", ref.ID, ref.Source)
	case ref.Batch > 0:
		return fmt.Sprintf("%s (batch %d/%d)", ref.ID, ref.Batch, ref.TotalBatches)
	default:
		return ref.ID
	}
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}
