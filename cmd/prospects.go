package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/groundsight/prospector/internal/model"
	"github.com/groundsight/prospector/internal/store"
)

var prospectsCmd = &cobra.Command{
	Use:   "prospects",
	Short: "Inspect qualified prospects",
	Long:  "Commands for listing prospects and viewing their planning and property links.",
}

// -- prospects list --

var prospectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prospects",
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

		tier, _ := cmd.Flags().GetString("tier")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		filter := store.ProspectFilter{
			Tier:   model.Tier(tier),
			Limit:  limit,
			Offset: offset,
		}

		prospects, err := st.ListProspects(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "prospects list")
		}

		if len(prospects) == 0 {
			fmt.Fprintln(os.Stderr, "No prospects found.")
			return nil
		}

		formatProspectsList(os.Stdout, prospects)
		return nil
	},
}

// -- prospects show --

var prospectsShowCmd = &cobra.Command{
	Use:   "show <company-number>",
	Short: "Show a prospect with its planning and property links",
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

		prospect, err := st.GetProspect(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "prospects show")
		}

		planning, err := st.ListPlanningLinks(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "prospects show: planning links")
		}
		property, err := st.ListPropertyLinks(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "prospects show: property links")
		}

		out := struct {
			Prospect *model.Prospect      `json:"prospect"`
			Planning []model.PlanningLink `json:"planning_links"`
			Property []model.PropertyLink `json:"property_links"`
		}{prospect, planning, property}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// formatProspectsList writes a tabular list of prospects to w.
func formatProspectsList(out io.Writer, prospects []model.Prospect) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COMPANY\tNAME\tSCORE\tTIER\tPLANNING\tPROPERTY\tLAST_RUN")
	_, _ = fmt.Fprintln(w, "-------\t----\t-----\t----\t--------\t--------\t--------")

	for _, p := range prospects {
		lastRun := ""
		if !p.LastRunAt.IsZero() {
			lastRun = p.LastRunAt.Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%t\t%t\t%s\n",
			p.CompanyNumber, p.CompanyName, p.Score, p.Tier,
			p.HasPlanningHits, p.HasOwnedPropertyHits, lastRun,
		)
	}

	_ = w.Flush()
}

func init() {
	prospectsListCmd.Flags().String("tier", "", "filter by tier (A, B, C, UNQUALIFIED)")
	prospectsListCmd.Flags().Int("limit", 50, "max prospects to list")
	prospectsListCmd.Flags().Int("offset", 0, "list offset")

	prospectsCmd.AddCommand(prospectsListCmd)
	prospectsCmd.AddCommand(prospectsShowCmd)
	rootCmd.AddCommand(prospectsCmd)
}
