package benchmark

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bayesnet/internal/domain"
	"bayesnet/internal/inference"
	"bayesnet/internal/loader"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunDefaultSuites(t *testing.T) {
	for _, parallel := range []int{1, 4} {
		report, err := NewRunner(WithParallel(parallel)).Run(context.Background(), DefaultSuites())
		require.NoError(t, err)

		require.Len(t, report.Suites, 4)
		assert.Equal(t, 6+7+5+4, report.Queries())
		assert.True(t, report.Consistent())

		burglary := report.Suites[0]
		assert.Equal(t, "Burglary", burglary.Name)
		both := burglary.Cases[3]
		assert.Equal(t, "Burglary", both.Case.Variable)
		assert.InDelta(t, 0.2842, both.Enumeration[domain.Bool(true)], 1e-4)
		assert.Positive(t, both.Operations)
		assert.Positive(t, both.MaxFactorSize)
	}
}

func TestResultsKeepCaseOrder(t *testing.T) {
	suite := MarginalSuite("marginals", loader.BurglaryNetwork())
	report, err := NewRunner(WithParallel(8), WithRepeat(3)).Run(context.Background(), []Suite{suite})
	require.NoError(t, err)

	for i, c := range report.Suites[0].Cases {
		assert.Equal(t, suite.Cases[i].Variable, c.Case.Variable)
	}
}

func TestRunFailsOnBadCase(t *testing.T) {
	suite := BurglarySuite()
	suite.Cases = append(suite.Cases, Case{Variable: "Nope"})

	_, err := NewRunner(WithParallel(2)).Run(context.Background(), []Suite{suite})
	require.Error(t, err)
	assert.ErrorIs(t, err, inference.ErrQueryVariableNotFound)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner().Run(ctx, DefaultSuites())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSpeedup(t *testing.T) {
	r := SuiteResult{EnumerationTotal: 3 * time.Millisecond, EliminationTotal: time.Millisecond}
	assert.InDelta(t, 3.0, r.Speedup(), 1e-9)
	assert.Zero(t, SuiteResult{EnumerationTotal: time.Millisecond}.Speedup())

	report := &Report{Suites: []SuiteResult{r, r}}
	enum, elim := report.Totals()
	assert.Equal(t, 6*time.Millisecond, enum)
	assert.Equal(t, 2*time.Millisecond, elim)
	assert.InDelta(t, 3.0, report.Speedup(), 1e-9)
}

func TestCaseString(t *testing.T) {
	c := Case{Variable: "Alarm", Evidence: domain.Evidence{"Burglary": domain.Bool(true)}}
	assert.Equal(t, "P(Alarm | {Burglary=true})", c.String())
}
