package main

import (
	"errors"
	"fmt"

	"econ_dashboard/pkg/core/apperr"
	"econ_dashboard/pkg/core/edgar"

	"github.com/spf13/cobra"
)

var (
	summarizeTicker string
	summarizeForm   string
	summarizeTables bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize a company's latest filing on the terminal",
	Long: `Fetch the latest 10-K or 10-Q for a ticker from SEC EDGAR, extract the cash
flow, income and balance sheet statements and print the LLM analysis.`,
	Example: "  dashboard summarize --ticker AAPL --form 10-Q",
	RunE: func(cmd *cobra.Command, args []string) error {
		if summarizeTicker == "" {
			return errors.New("--ticker is required")
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.summaries.Generate(cmd.Context(), summarizeTicker, summarizeForm)
		if err != nil {
			if apperr.KindOf(err) != apperr.KindUnknown {
				return fmt.Errorf("%s (%w)", apperr.UserMessage(err), err)
			}
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s filed %s, accession %s (analysis by %s)\n\n",
			s.Ticker, s.Form, s.Filing.FilingDate, s.Filing.AccessionNumber, s.Provider)
		if summarizeTables {
			for _, st := range s.Statements {
				fmt.Fprintf(out, "== %s ==\n%s\n", st.Kind.Label(), st.Text())
			}
		}
		fmt.Fprintln(out, s.Analysis)
		return nil
	},
}

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeTicker, "ticker", "t", "", "Company ticker, e.g. AAPL")
	summarizeCmd.Flags().StringVarP(&summarizeForm, "form", "f", edgar.FormAnnual, "Filing type: 10-K or 10-Q")
	summarizeCmd.Flags().BoolVar(&summarizeTables, "tables", false, "Also print the extracted statement tables")
}
