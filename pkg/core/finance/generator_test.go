package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"econ_dashboard/pkg/core/apperr"
	"econ_dashboard/pkg/core/cache"
	"econ_dashboard/pkg/core/edgar"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	FinancialStatementsFunc func(ctx context.Context, ticker, form string) (*edgar.FilingStatements, error)
}

func (m *mockSource) FinancialStatements(ctx context.Context, ticker, form string) (*edgar.FilingStatements, error) {
	return m.FinancialStatementsFunc(ctx, ticker, form)
}

type mockAnalyzer struct {
	ExecutePromptFunc func(ctx context.Context, agentType, prompt, system string, options map[string]interface{}) (string, string, error)
	calls             int
}

func (m *mockAnalyzer) ExecutePrompt(ctx context.Context, agentType, prompt, system string, options map[string]interface{}) (string, string, error) {
	m.calls++
	return m.ExecutePromptFunc(ctx, agentType, prompt, system, options)
}

func sampleStatements() *edgar.FilingStatements {
	mk := func(kind edgar.StatementKind, label, v string) edgar.Statement {
		return edgar.Statement{
			Kind:    kind,
			Title:   strings.ToUpper(kind.Label()),
			Columns: []string{"Sep. 28, 2024"},
			Rows:    []edgar.LineItem{{Label: label, Values: []string{v}}},
		}
	}
	return &edgar.FilingStatements{
		Filing: edgar.Filing{CIK: "0000320193", Ticker: "AAPL", Form: "10-K", AccessionNumber: "0000320193-24-000123"},
		Statements: []edgar.Statement{
			mk(edgar.CashFlow, "Operating cash flow", "118,254"),
			mk(edgar.IncomeStatement, "Net income", "93,736"),
			mk(edgar.BalanceSheet, "Total assets", "364,980"),
		},
	}
}

func okSource(gotTicker, gotForm *string) *mockSource {
	return &mockSource{FinancialStatementsFunc: func(ctx context.Context, ticker, form string) (*edgar.FilingStatements, error) {
		*gotTicker, *gotForm = ticker, form
		return sampleStatements(), nil
	}}
}

func TestGenerate_NoFilingsSkipsLLM(t *testing.T) {
	src := &mockSource{FinancialStatementsFunc: func(ctx context.Context, ticker, form string) (*edgar.FilingStatements, error) {
		return nil, apperr.Wrap(apperr.KindEmpty, "edgar.latest_filing", "No 10-K filings found.",
			fmt.Errorf("%w: no 10-K filings for CIK 0000320193", edgar.ErrNoFilings))
	}}
	llm := &mockAnalyzer{ExecutePromptFunc: func(ctx context.Context, agentType, prompt, system string, options map[string]interface{}) (string, string, error) {
		return "should not be called", "mock", nil
	}}

	g := NewGenerator(src, llm, nil, nil, zerolog.Nop())
	_, err := g.Generate(context.Background(), "AAPL", "10-K")

	require.Error(t, err)
	assert.True(t, errors.Is(err, edgar.ErrNoFilings))
	assert.Contains(t, err.Error(), "no filings found")
	assert.Equal(t, 0, llm.calls)
}

func TestGenerate_Success(t *testing.T) {
	var gotTicker, gotForm, gotPrompt, gotSystem, gotAgent string
	llm := &mockAnalyzer{ExecutePromptFunc: func(ctx context.Context, agentType, prompt, system string, options map[string]interface{}) (string, string, error) {
		gotAgent, gotPrompt, gotSystem = agentType, prompt, system
		return "## Cash Flow\nStrong.", "openai", nil
	}}
	history := cache.NewAccessor(cache.NewMemoryStore(), time.Hour, "", cache.BypassOnStoreError, zerolog.Nop())

	g := NewGenerator(okSource(&gotTicker, &gotForm), llm, nil, history, zerolog.Nop())
	g.now = func() time.Time { return time.Date(2024, 11, 2, 10, 0, 0, 0, time.UTC) }

	s, err := g.Generate(context.Background(), " aapl ", "10-k")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", gotTicker)
	assert.Equal(t, "10-K", gotForm)
	assert.Equal(t, "finance", gotAgent)
	assert.Equal(t, "You are an AI trained to provide financial analysis based on financial statements.", gotSystem)

	cf := strings.Index(gotPrompt, "Cash Flow:")
	is := strings.Index(gotPrompt, "Income Statement:")
	bs := strings.Index(gotPrompt, "Balance Sheet:")
	require.True(t, cf >= 0 && is >= 0 && bs >= 0, gotPrompt)
	assert.True(t, cf < is && is < bs, "statements appear in cash flow, income, balance order")
	assert.Contains(t, gotPrompt, "Operating cash flow")

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "openai", s.Provider)
	assert.Equal(t, "## Cash Flow\nStrong.", s.Analysis)
	assert.Len(t, s.Statements, 3)
	assert.Equal(t, 2024, s.GeneratedAt.Year())
	assert.True(t, s.Kept)

	again, err := g.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Analysis, again.Analysis)
	assert.Equal(t, s.Filing, again.Filing)
}

// downStore fails every read and write.
type downStore struct{}

func (downStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("dial tcp: connection refused")
}

func (downStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("dial tcp: connection refused")
}

func (downStore) Delete(ctx context.Context, key string) error { return nil }
func (downStore) Ping(ctx context.Context) error             { return errors.New("unreachable") }
func (downStore) Close() error                               { return nil }

func TestGenerate_StoreDownReturnsUnsavedSummary(t *testing.T) {
	var tk, fm string
	llm := &mockAnalyzer{ExecutePromptFunc: func(ctx context.Context, agentType, prompt, system string, options map[string]interface{}) (string, string, error) {
		return "Solid quarter.", "openai", nil
	}}
	history := cache.NewAccessor(downStore{}, time.Hour, "", cache.BypassOnStoreError, zerolog.Nop())

	s, err := NewGenerator(okSource(&tk, &fm), llm, nil, history, zerolog.Nop()).Generate(context.Background(), "AAPL", "10-K")
	require.NoError(t, err)
	assert.Equal(t, "Solid quarter.", s.Analysis)
	assert.False(t, s.Kept)
	assert.Equal(t, 1, llm.calls)

	s, err = NewGenerator(okSource(&tk, &fm), llm, nil, nil, zerolog.Nop()).Generate(context.Background(), "AAPL", "10-K")
	require.NoError(t, err)
	assert.False(t, s.Kept, "no history means nothing is kept")
}

func TestGenerate_LLMFailure(t *testing.T) {
	var tk, fm string
	llm := &mockAnalyzer{ExecutePromptFunc: func(ctx context.Context, agentType, prompt, system string, options map[string]interface{}) (string, string, error) {
		return "", "openai", errors.New("429 rate limited")
	}}

	_, err := NewGenerator(okSource(&tk, &fm), llm, nil, nil, zerolog.Nop()).Generate(context.Background(), "AAPL", "10-Q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLLM))
	assert.True(t, apperr.Is(err, apperr.KindDownstream))
	assert.Equal(t, "Couldn't generate the financial analysis right now.", apperr.UserMessage(err))
}

func TestGenerate_EmptyAnalysis(t *testing.T) {
	var tk, fm string
	llm := &mockAnalyzer{ExecutePromptFunc: func(ctx context.Context, agentType, prompt, system string, options map[string]interface{}) (string, string, error) {
		return "  ", "gemini", nil
	}}
	_, err := NewGenerator(okSource(&tk, &fm), llm, nil, nil, zerolog.Nop()).Generate(context.Background(), "AAPL", "10-K")
	assert.True(t, errors.Is(err, ErrLLM))
}

func TestGenerate_InvalidInput(t *testing.T) {
	src := &mockSource{FinancialStatementsFunc: func(ctx context.Context, ticker, form string) (*edgar.FilingStatements, error) {
		t.Fatal("source must not be called")
		return nil, nil
	}}
	llm := &mockAnalyzer{}
	g := NewGenerator(src, llm, nil, nil, zerolog.Nop())

	_, err := g.Generate(context.Background(), "  ", "10-K")
	assert.True(t, apperr.Is(err, apperr.KindInvalidSelection))

	_, err = g.Generate(context.Background(), "AAPL", "8-K")
	assert.True(t, apperr.Is(err, apperr.KindInvalidSelection))
	assert.True(t, errors.Is(err, edgar.ErrUnsupportedForm))
}

func TestGet_Unknown(t *testing.T) {
	history := cache.NewAccessor(cache.NewMemoryStore(), time.Hour, "", cache.BypassOnStoreError, zerolog.Nop())
	g := NewGenerator(nil, nil, nil, history, zerolog.Nop())

	_, err := g.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrSummaryNotFound))
	assert.True(t, apperr.Is(err, apperr.KindUnknownID))

	_, err = NewGenerator(nil, nil, nil, nil, zerolog.Nop()).Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrSummaryNotFound))
}

func TestStatementsText_Order(t *testing.T) {
	fs := sampleStatements()
	fs.Statements[0], fs.Statements[2] = fs.Statements[2], fs.Statements[0]

	text := StatementsText(fs)
	assert.True(t, strings.HasPrefix(text, "Cash Flow:CASH FLOW"))
	assert.Less(t, strings.Index(text, "Income Statement:"), strings.Index(text, "Balance Sheet:"))
}
