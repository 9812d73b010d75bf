package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"instaguard/internal/app"
	"instaguard/internal/db"
	"instaguard/internal/models"
	"instaguard/internal/override"
	"instaguard/internal/pipeline"
)

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	services, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	res, err := services.Pipeline.Classify(cmd.Context(), pipeline.Request{Username: args[0]})
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), res)
}

func runDecisions(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := db.Open(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	decisions, err := store.ListDecisions(cmd.Context(), models.DecisionFilter{Limit: limit})
	if err != nil {
		return err
	}
	return printDecisions(cmd.OutOrStdout(), decisions)
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := db.Open(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := store.CountDecisionsByLabel(cmd.Context())
	if err != nil {
		return err
	}
	return printStats(cmd.OutOrStdout(), counts)
}

func runOverrides(cmd *cobra.Command, _ []string) error {
	entries := override.Default().Entries()
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), entries)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tJUSTIFICATION")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.Username, e.Justification)
	}
	return w.Flush()
}

func printResult(out io.Writer, res *pipeline.Result) error {
	d := res.Decision
	if jsonOutput {
		return writeJSON(out, models.ClassifyResponse{
			Username:   d.Username,
			Label:      d.Label,
			Confidence: d.Confidence,
			Message:    res.Message,
			Note:       d.Note,
			DecisionID: &d.ID,
		})
	}

	fmt.Fprintf(out, "@%s: %s (%s)\n", d.Username, d.Label, formatConfidence(d.Confidence))
	fmt.Fprintln(out, res.Message)
	if d.Note != "" {
		fmt.Fprintln(out, d.Note)
	}
	fmt.Fprintf(out, "source=%s model=%s decision=%s\n", d.Source, d.ModelVersion, d.ID)
	return nil
}

func printDecisions(out io.Writer, decisions []models.Decision) error {
	if jsonOutput {
		if decisions == nil {
			decisions = []models.Decision{}
		}
		return writeJSON(out, decisions)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tUSERNAME\tLABEL\tCONFIDENCE\tSOURCE\tMODEL")
	for _, d := range decisions {
		fmt.Fprintf(w, "%s\t@%s\t%s\t%s\t%s\t%s\n",
			d.CreatedAt.Format("2006-01-02 15:04:05"),
			d.Username, d.Label, formatConfidence(d.Confidence), d.Source, d.ModelVersion)
	}
	return w.Flush()
}

func printStats(out io.Writer, counts []models.LabelCount) error {
	resp := models.DecisionStatsResponse{Labels: counts}
	for _, lc := range counts {
		resp.Total += lc.Count
	}
	if jsonOutput {
		if resp.Labels == nil {
			resp.Labels = []models.LabelCount{}
		}
		return writeJSON(out, resp)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, lc := range counts {
		fmt.Fprintf(w, "%s\t%d\n", lc.Label, lc.Count)
	}
	fmt.Fprintf(w, "total\t%d\n", resp.Total)
	return w.Flush()
}

func formatConfidence(c *float64) string {
	if c == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *c)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
