package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/MrWong99/callsight/internal/app"
	"github.com/MrWong99/callsight/internal/catalog"
	"github.com/MrWong99/callsight/internal/report"
)

// stageCmd builds a subcommand that runs fn against a fully wired App.
func (c *cli) stageCmd(use, short string, fn func(context.Context, *app.App) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), fn)
		},
	}
}

func (c *cli) cleanCmd() *cobra.Command {
	return c.stageCmd("clean", "Write cleaned copies of the raw transcripts", func(ctx context.Context, a *app.App) error {
		n, err := a.Clean(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("cleaned %d transcripts into %s\n", n, c.cfg.Paths.CleanDir)
		return nil
	})
}

func (c *cli) analyzeCmd() *cobra.Command {
	return c.stageCmd("analyze", "Detect objections with the regex catalog", func(ctx context.Context, a *app.App) error {
		res, err := a.AnalyzeRegex(ctx)
		if err != nil {
			return err
		}
		t := tablewriter.NewWriter(os.Stdout)
		t.SetHeader([]string{"file", "objections", "avg_intensity", "types"})
		t.SetAutoWrapText(false)
		for _, r := range res.Reports {
			intensity := ""
			if r.AvgIntensity != nil {
				intensity = strconv.FormatFloat(*r.AvgIntensity, 'f', 2, 64)
			}
			types := ""
			for i, tc := range r.ObjectionTypes {
				if i > 0 {
					types += ", "
				}
				types += fmt.Sprintf("%s=%d", tc.Type, tc.Count)
			}
			t.Append([]string{r.File, strconv.Itoa(r.ObjectionsFound), intensity, types})
		}
		t.Render()
		s := res.Summary
		fmt.Printf("%d files, %d objections (%.2f per file), most common: %s\n",
			s.TotalFiles, s.TotalObjections, s.AvgObjectionsPerFile, s.MostCommonObjection)
		return nil
	})
}

func (c *cli) detectCmd() *cobra.Command {
	var threshold float64
	cmd := c.stageCmd("detect", "Detect objections by embedding similarity", func(ctx context.Context, a *app.App) error {
		dets, err := a.DetectSemantic(ctx, threshold)
		if err != nil {
			return err
		}
		t := tablewriter.NewWriter(os.Stdout)
		t.SetHeader([]string{"file", "type", "category", "similarity", "nearest_phrase", "phrase"})
		t.SetAutoWrapText(false)
		for _, d := range dets {
			t.Append([]string{
				d.File, d.Type, d.Category,
				strconv.FormatFloat(d.Similarity, 'f', -1, 64),
				d.NearestPhrase, d.Phrase,
			})
		}
		t.Render()
		return nil
	})
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum cosine similarity in [0,1]; 0 uses semantic.threshold from the config")
	return cmd
}

func (c *cli) validateCmd() *cobra.Command {
	return c.stageCmd("validate", "Confirm semantic detections with the LLM", func(ctx context.Context, a *app.App) error {
		validated, err := a.Validate(ctx)
		if err != nil {
			return err
		}
		accepted := 0
		for _, v := range validated {
			if v.Validated {
				accepted++
			}
		}
		fmt.Printf("%d of %d detections confirmed\n", accepted, len(validated))
		return nil
	})
}

func (c *cli) metricsCmd() *cobra.Command {
	return c.stageCmd("metrics", "Compute speaking time and sentiment per call", func(ctx context.Context, a *app.App) error {
		cms, err := a.Metrics(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("computed metrics for %d calls\n", len(cms))
		return nil
	})
}

func (c *cli) summarizeCmd() *cobra.Command {
	return c.stageCmd("summarize", "Summarise every call with the LLM", func(ctx context.Context, a *app.App) error {
		sums, err := a.Summaries(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("summarised %d calls\n", len(sums))
		return nil
	})
}

func (c *cli) reportCmd() *cobra.Command {
	return c.stageCmd("report", "Join stage outputs into the final report", func(ctx context.Context, a *app.App) error {
		rows, err := a.Report(ctx)
		if err != nil {
			return err
		}
		report.WriteTable(os.Stdout, rows)
		return nil
	})
}

func (c *cli) runCmd() *cobra.Command {
	return c.stageCmd("run", "Run every stage in order", func(ctx context.Context, a *app.App) error {
		if err := a.Run(ctx); err != nil {
			return err
		}
		for _, st := range a.Progress().Snapshot() {
			slog.Info("stage finished", "stage", st.Stage, "state", st.State, "detail", st.Error)
		}
		return nil
	})
}

func (c *cli) catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the phrases derived from the objection catalog",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cat := catalog.Default()
			if path := c.cfg.Catalog.Path; path != "" {
				var err error
				if cat, err = catalog.Load(path); err != nil {
					return err
				}
			}

			t := tablewriter.NewWriter(os.Stdout)
			t.SetHeader([]string{"type", "category", "intensity", "phrase"})
			t.SetAutoWrapText(false)
			for _, e := range cat.Entries() {
				t.Append([]string{e.Type, e.Category, strconv.Itoa(cat.Intensity(e.Category)), e.Phrase})
			}
			t.Render()

			dups := catalog.Lint(cat.Entries(), c.cfg.Catalog.LintSimilarity)
			for _, d := range dups {
				fmt.Printf("warning: %q (%s/%s) and %q (%s/%s) are %.3f similar\n",
					d.A.Phrase, d.A.Type, d.A.Category,
					d.B.Phrase, d.B.Type, d.B.Category, d.Similarity)
			}
			fmt.Printf("%d patterns, %d phrases, %d near-duplicates\n", cat.PatternCount(), len(cat.Entries()), len(dups))
			return nil
		},
	}
}
