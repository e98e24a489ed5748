package edgar

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
)

var (
	// ErrTickerNotFound: the ticker is not in SEC's company_tickers.json.
	ErrTickerNotFound = errors.New("ticker not found")
	// ErrNoFilings: the company has no filing of the requested form.
	ErrNoFilings = errors.New("no filings found")
	// ErrStatementNotFound: the filing does not expose one of the primary statements.
	ErrStatementNotFound = errors.New("statement not found in filing")
	// ErrUnsupportedForm: only 10-K and 10-Q are summarized.
	ErrUnsupportedForm = errors.New("unsupported form type")
)

// Supported form types.
const (
	FormAnnual    = "10-K"
	FormQuarterly = "10-Q"
)

// ValidateForm normalises and checks a form selector.
func ValidateForm(form string) (string, error) {
	f := strings.ToUpper(strings.TrimSpace(form))
	switch f {
	case FormAnnual, FormQuarterly:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q (want %s or %s)", ErrUnsupportedForm, form, FormAnnual, FormQuarterly)
}

// Filing identifies one SEC filing.
type Filing struct {
	CIK             string `json:"cik"`
	CompanyName     string `json:"company_name"`
	Ticker          string `json:"ticker"`
	Form            string `json:"form"`
	AccessionNumber string `json:"accession_number"`
	FilingDate      string `json:"filing_date"`
	ReportDate      string `json:"report_date"`
	PrimaryDocument string `json:"primary_document"`
}

// StatementKind names one of the three primary financial statements.
type StatementKind string

const (
	CashFlow        StatementKind = "cash_flow"
	IncomeStatement StatementKind = "income_statement"
	BalanceSheet    StatementKind = "balance_sheet"
)

// StatementKinds lists the statements in the order they are summarized.
var StatementKinds = []StatementKind{CashFlow, IncomeStatement, BalanceSheet}

// Label is the display name of the statement.
func (k StatementKind) Label() string {
	switch k {
	case CashFlow:
		return "Cash Flow"
	case IncomeStatement:
		return "Income Statement"
	case BalanceSheet:
		return "Balance Sheet"
	}
	return string(k)
}

// LineItem is one row of a statement table.
type LineItem struct {
	Label  string   `json:"label"`
	Values []string `json:"values"`
	// Header rows are section captions without values.
	Header bool `json:"header,omitempty"`
}

// Statement is a parsed statement table as rendered by EDGAR.
type Statement struct {
	Kind      StatementKind `json:"kind"`
	Title     string        `json:"title"`
	Columns   []string      `json:"columns"`
	Rows      []LineItem    `json:"rows"`
	SourceURL string        `json:"source_url"`
}

// Text renders the statement as an aligned plain-text table.
func (s Statement) Text() string {
	var b strings.Builder
	if s.Title != "" {
		b.WriteString(s.Title)
		b.WriteString("\n")
	}
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	if len(s.Columns) > 0 {
		fmt.Fprintf(tw, "\t%s\n", strings.Join(s.Columns, "\t"))
	}
	for _, r := range s.Rows {
		if r.Header {
			fmt.Fprintf(tw, "%s\n", r.Label)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", r.Label, strings.Join(r.Values, "\t"))
	}
	tw.Flush()
	return b.String()
}

// FilingStatements is the latest filing of a form with its three statements.
type FilingStatements struct {
	Filing     Filing      `json:"filing"`
	Statements []Statement `json:"statements"` // StatementKinds order
}

// Get returns the statement of the given kind.
func (fs *FilingStatements) Get(kind StatementKind) (Statement, bool) {
	for _, s := range fs.Statements {
		if s.Kind == kind {
			return s, true
		}
	}
	return Statement{}, false
}
