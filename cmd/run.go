package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/groundsight/prospector/internal/store"
)

var (
	runCompanyNumber string
	runProspect      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the qualification gauntlet for a single company",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if runCompanyNumber == "" && runProspect == "" {
			return eris.New("either --company-number or --prospect is required")
		}

		env, err := initGauntlet(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		companyNumber, err := resolveCompanyNumber(ctx, env.Store, runCompanyNumber, runProspect)
		if err != nil {
			return err
		}

		result, err := env.Runner.Run(ctx, companyNumber)
		if err != nil {
			return eris.Wrap(err, "gauntlet run")
		}

		zap.L().Info("gauntlet complete",
			zap.String("company_number", result.CompanyNumber),
			zap.Int("score", result.Score),
			zap.String("tier", string(result.Tier)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// resolveCompanyNumber turns either trigger form into a company number.
// A prospect reference requires the prospect to already exist.
func resolveCompanyNumber(ctx context.Context, st store.Store, companyNumber, prospectRef string) (string, error) {
	if companyNumber != "" {
		return companyNumber, nil
	}
	p, err := st.GetProspect(ctx, prospectRef)
	if err != nil {
		return "", eris.Wrap(err, "resolve prospect")
	}
	if p == nil {
		return "", eris.Errorf("no prospect found for %q", prospectRef)
	}
	return p.CompanyNumber, nil
}

func init() {
	runCmd.Flags().StringVar(&runCompanyNumber, "company-number", "", "Companies House company number")
	runCmd.Flags().StringVar(&runProspect, "prospect", "", "existing prospect reference (company number key)")
	rootCmd.AddCommand(runCmd)
}
