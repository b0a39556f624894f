package main

import (
	"context"
	"fmt"
	"time"

	credora "github.com/credora-ai/credora/sdk/golang"
	"github.com/spf13/cobra"
)

var (
	applyReq        credora.ApplicationRequest
	applyGraduate   bool
	applyCibilScore int
)

func init() {
	rootCmd.AddCommand(applyCmd)
	f := applyCmd.Flags()
	f.Float64Var(&applyReq.IncomeAnnum, "income", 0, "Annual income (required)")
	f.Float64Var(&applyReq.LoanAmount, "amount", 0, "Requested loan amount (required)")
	f.IntVar(&applyReq.LoanTerm, "term", 0, "Loan term in years (required)")
	f.IntVar(&applyReq.NoOfDependents, "dependents", 0, "Number of dependents (0-5)")
	f.BoolVar(&applyGraduate, "graduate", false, "Applicant is a graduate")
	f.BoolVar(&applyReq.SelfEmployed, "self-employed", false, "Applicant is self-employed")
	f.IntVar(&applyCibilScore, "cibil", 0, "CIBIL score (300-900); fetched by the backend when omitted")
	f.Float64Var(&applyReq.ResidentialAssetsValue, "residential-assets", 0, "Residential assets value")
	f.Float64Var(&applyReq.CommercialAssetsValue, "commercial-assets", 0, "Commercial assets value")
	f.Float64Var(&applyReq.LuxuryAssetsValue, "luxury-assets", 0, "Luxury assets value")
	f.Float64Var(&applyReq.BankAssetValue, "bank-assets", 0, "Bank assets value")
	for _, name := range []string{"income", "amount", "term"} {
		_ = applyCmd.MarkFlagRequired(name)
	}
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Submit a loan application",
	Long:  "Submit a loan application for the signed-in user. Follow its progress with 'credora listen' or 'credora status <id>'.",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := applyReq
		req.Education = "Not Graduate"
		if applyGraduate {
			req.Education = "Graduate"
		}
		if cmd.Flags().Changed("cibil") {
			score := applyCibilScore
			req.CibilScore = &score
		}

		s, err := loadSettings()
		if err != nil {
			return err
		}
		client, err := s.client(true)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		resp, err := client.SubmitApplication(ctx, &req)
		if err != nil {
			return fmt.Errorf("failed to submit application: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Application #%d submitted (CIBIL score %d).\n", resp.ApplicationID, resp.CibilScore)
		return nil
	},
}
