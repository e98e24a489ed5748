package prompt

// IDs of prompts the application relies on.
const (
	FinanceSummaryID = "finance.summary"
)

const financeSummarySystem = "You are an AI trained to provide financial analysis based on financial statements."

const financeSummaryUser = `Please analyze the following data and provide insights:
{{.Statements}}.
Write each section out as instructed in the summary section and then provide analysis of how it's changed over the time period.`

// builtins are registered before any directory is loaded, so a deployment
// without resources/prompts still works.
func builtins() []*PromptTemplate {
	return []*PromptTemplate{
		{
			ID:             FinanceSummaryID,
			Name:           "Financial statement summary",
			Category:       "finance",
			Description:    "Summarizes cash flow, income statement and balance sheet of the latest filing.",
			SystemPrompt:   financeSummarySystem,
			UserPromptTmpl: financeSummaryUser,
			Variables: []PromptVariable{
				{Name: "Statements", Type: "string", Description: "Concatenated statement tables", Required: true},
				{Name: "Ticker", Type: "string", Description: "Company ticker"},
				{Name: "Form", Type: "string", Description: "10-K or 10-Q"},
			},
			Version: "1",
		},
	}
}
