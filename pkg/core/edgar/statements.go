package edgar

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"econ_dashboard/pkg/core/apperr"

	"github.com/PuerkitoBio/goquery"
)

// FilingSummary represents the FilingSummary.xml structure
type FilingSummary struct {
	MyReports struct {
		Reports []Report `xml:"Report"`
	} `xml:"MyReports"`
}

type Report struct {
	ShortName    string `xml:"ShortName"`
	LongName     string `xml:"LongName"`
	HtmlFileName string `xml:"HtmlFileName"`
	MenuCategory string `xml:"MenuCategory"`
	Position     string `xml:"Position"`
}

func (c *Client) fetchFilingSummary(ctx context.Context, cik, accession string) (*FilingSummary, error) {
	const op = "edgar.filing_summary"

	body, err := c.fetchURL(ctx, c.archiveURL(cik, accession, "FilingSummary.xml"))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, op, "", fmt.Errorf("failed to fetch FilingSummary.xml: %w", err))
	}

	var summary FilingSummary
	if err := xml.Unmarshal(body, &summary); err != nil {
		return nil, apperr.Wrap(apperr.KindDownstream, op, "", fmt.Errorf("failed to parse FilingSummary.xml: %w", err))
	}
	return &summary, nil
}

var (
	balanceSheetPattern = regexp.MustCompile(`(?i)balance\s*sheets?|financial\s*(position|condition)`)
	incomePattern       = regexp.MustCompile(`(?i)statements?\s+of\s+(consolidated\s+)?(operations|income|earnings)|income\s+statements?|statements?\s+of\s+(consolidated\s+)?comprehensive\s+(income|loss)`)
	cashFlowPattern     = regexp.MustCompile(`(?i)cash\s*flows?`)
	comprehensiveWord   = regexp.MustCompile(`(?i)comprehensive`)
)

// selectStatementReports picks one report per statement kind. Reports outside
// the "Statements" menu (when the filing categorises at all) and parentheticals
// are skipped; a pure income statement beats a comprehensive-income one.
func selectStatementReports(summary *FilingSummary) map[StatementKind]Report {
	categorised := false
	for _, r := range summary.MyReports.Reports {
		if r.MenuCategory != "" {
			categorised = true
			break
		}
	}

	picked := make(map[StatementKind]Report)
	var comprehensive *Report

	for i := range summary.MyReports.Reports {
		r := summary.MyReports.Reports[i]
		if r.HtmlFileName == "" {
			continue
		}
		if categorised && !strings.EqualFold(r.MenuCategory, "Statements") {
			continue
		}
		name := r.ShortName + " " + r.LongName
		if strings.Contains(strings.ToLower(name), "parenthetical") {
			continue
		}

		switch {
		case cashFlowPattern.MatchString(name):
			if _, ok := picked[CashFlow]; !ok {
				picked[CashFlow] = r
			}
		case balanceSheetPattern.MatchString(name):
			if _, ok := picked[BalanceSheet]; !ok {
				picked[BalanceSheet] = r
			}
		case incomePattern.MatchString(name):
			if comprehensiveWord.MatchString(r.ShortName) {
				if comprehensive == nil {
					comprehensive = &r
				}
				continue
			}
			if _, ok := picked[IncomeStatement]; !ok {
				picked[IncomeStatement] = r
			}
		}
	}

	if _, ok := picked[IncomeStatement]; !ok && comprehensive != nil {
		picked[IncomeStatement] = *comprehensive
	}
	return picked
}

var whitespace = regexp.MustCompile(`\s+`)

func cellText(s *goquery.Selection) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s.Text(), " "))
}

// ParseStatement reads the first report table of an EDGAR R-page.
//
// Header rows hold <th> cells: the first (class "tl") is the statement title,
// the rest are period captions. A two-row header ("12 Months Ended" spanning
// several dates) is flattened into one caption per column.
func ParseStatement(html string) (Statement, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Statement{}, fmt.Errorf("failed to parse statement HTML: %w", err)
	}

	table := doc.Find("table.report").First()
	if table.Length() == 0 {
		table = doc.Find("table").First()
	}
	if table.Length() == 0 {
		return Statement{}, errors.New("no table in statement page")
	}

	var st Statement
	var headerRows [][]string

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Find("td").Length() == 0 {
			var captions []string
			tr.Find("th").Each(func(_ int, th *goquery.Selection) {
				if th.HasClass("tl") {
					if st.Title == "" {
						st.Title = cellText(th)
					}
					return
				}
				span, _ := strconv.Atoi(th.AttrOr("colspan", "1"))
				if span < 1 {
					span = 1
				}
				text := cellText(th)
				for i := 0; i < span; i++ {
					captions = append(captions, text)
				}
			})
			if len(captions) > 0 {
				headerRows = append(headerRows, captions)
			}
			return
		}

		cells := tr.Find("td")
		label := cellText(cells.First())
		if label == "" {
			return
		}
		var values []string
		hasValue := false
		cells.Slice(1, goquery.ToEnd).Each(func(_ int, td *goquery.Selection) {
			v := cellText(td)
			if v != "" {
				hasValue = true
			}
			values = append(values, v)
		})
		st.Rows = append(st.Rows, LineItem{Label: label, Values: values, Header: !hasValue})
	})

	st.Columns = flattenHeaders(headerRows)
	if len(st.Rows) == 0 {
		return Statement{}, errors.New("statement table has no rows")
	}
	return st, nil
}

func flattenHeaders(rows [][]string) []string {
	switch len(rows) {
	case 0:
		return nil
	case 1:
		return rows[0]
	}
	last := rows[len(rows)-1]
	first := rows[0]
	if len(first) != len(last) {
		return last
	}
	out := make([]string, len(last))
	for i := range last {
		out[i] = strings.TrimSpace(first[i] + " " + last[i])
	}
	return out
}

func isNoFilings(err error) bool {
	return errors.Is(err, ErrNoFilings)
}
