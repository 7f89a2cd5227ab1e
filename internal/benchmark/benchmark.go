// Package benchmark compares the inference engines on fixed query suites.
//
// Each case runs both engines on the same query and checks that their
// distributions agree. Cases are independent, so the runner fans them out
// with a bounded errgroup; every case builds its own engines over the shared
// read-only network.
package benchmark

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bayesnet/internal/domain"
	"bayesnet/internal/inference"
	"bayesnet/internal/loader"
)

// DefaultTolerance is the largest difference at which two engines agree
const DefaultTolerance = 1e-6

// Case is one posterior query
type Case struct {
	Variable string
	Evidence domain.Evidence
}

// String renders the case as P(X | {A=a})
func (c Case) String() string {
	return fmt.Sprintf("P(%s | %s)", c.Variable, c.Evidence)
}

// Suite is a named list of cases over one network
type Suite struct {
	Name    string
	Network *domain.Network
	Cases   []Case
}

// CaseResult holds the answers and timings of both engines for one case
type CaseResult struct {
	Case            Case
	Enumeration     inference.Distribution
	Elimination     inference.Distribution
	EnumerationTime time.Duration
	EliminationTime time.Duration
	Operations      int64
	MaxFactorSize   int
	Consistent      bool
	MaxDiff         float64
}

// SuiteResult aggregates the cases of one suite
type SuiteResult struct {
	Name             string
	Cases            []CaseResult
	EnumerationTotal time.Duration
	EliminationTotal time.Duration
}

// Speedup is enumeration time over elimination time, 0 when elimination
// took no measurable time
func (r SuiteResult) Speedup() float64 {
	return speedup(r.EnumerationTotal, r.EliminationTotal)
}

// Consistent reports whether every case agreed
func (r SuiteResult) Consistent() bool {
	for _, c := range r.Cases {
		if !c.Consistent {
			return false
		}
	}
	return true
}

// Report is the result of a benchmark run
type Report struct {
	Suites []SuiteResult
}

// Queries returns the number of cases across all suites
func (r *Report) Queries() int {
	n := 0
	for _, s := range r.Suites {
		n += len(s.Cases)
	}
	return n
}

// Totals returns the summed enumeration and elimination times
func (r *Report) Totals() (enumeration, elimination time.Duration) {
	for _, s := range r.Suites {
		enumeration += s.EnumerationTotal
		elimination += s.EliminationTotal
	}
	return enumeration, elimination
}

// Speedup is the overall enumeration over elimination time
func (r *Report) Speedup() float64 {
	return speedup(r.Totals())
}

// Consistent reports whether every case in every suite agreed
func (r *Report) Consistent() bool {
	for _, s := range r.Suites {
		if !s.Consistent() {
			return false
		}
	}
	return true
}

func speedup(enumeration, elimination time.Duration) float64 {
	if elimination <= 0 {
		return 0
	}
	return float64(enumeration) / float64(elimination)
}

// Runner executes suites
type Runner struct {
	parallel  int
	repeat    int
	tolerance float64
	logger    *zap.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithParallel bounds the number of cases run at once; values below 1 run
// cases one at a time
func WithParallel(n int) Option {
	return func(r *Runner) { r.parallel = n }
}

// WithRepeat runs each engine n times per case and reports the mean time
func WithRepeat(n int) Option {
	return func(r *Runner) { r.repeat = n }
}

// WithTolerance sets the agreement tolerance
func WithTolerance(tol float64) Option {
	return func(r *Runner) {
		if tol > 0 {
			r.tolerance = tol
		}
	}
}

// WithLogger sets the runner logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a benchmark runner
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		parallel:  1,
		repeat:    1,
		tolerance: DefaultTolerance,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.parallel < 1 {
		r.parallel = 1
	}
	if r.repeat < 1 {
		r.repeat = 1
	}
	return r
}

// Run executes every case of every suite. Results keep the suite and case
// order regardless of parallelism. The first failing case cancels the rest.
func (r *Runner) Run(ctx context.Context, suites []Suite) (*Report, error) {
	report := &Report{Suites: make([]SuiteResult, len(suites))}
	for i, s := range suites {
		report.Suites[i] = SuiteResult{Name: s.Name, Cases: make([]CaseResult, len(s.Cases))}
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)

	for si, s := range suites {
		for ci, c := range s.Cases {
			g.Go(func() error {
				if err := gCtx.Err(); err != nil {
					return err
				}
				res, err := r.runCase(s.Network, c)
				if err != nil {
					return fmt.Errorf("%s %s: %w", s.Name, c, err)
				}
				report.Suites[si].Cases[ci] = res
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range report.Suites {
		s := &report.Suites[i]
		for _, c := range s.Cases {
			s.EnumerationTotal += c.EnumerationTime
			s.EliminationTotal += c.EliminationTime
		}
		r.logger.Debug("suite finished",
			zap.String("suite", s.Name),
			zap.Int("cases", len(s.Cases)),
			zap.Duration("enumeration", s.EnumerationTotal),
			zap.Duration("elimination", s.EliminationTotal),
			zap.Bool("consistent", s.Consistent()))
	}

	return report, nil
}

func (r *Runner) runCase(net *domain.Network, c Case) (CaseResult, error) {
	enum := inference.NewEnumeration(net, inference.WithLogger(r.logger))
	elim := inference.NewElimination(net, inference.WithLogger(r.logger))

	res := CaseResult{Case: c}
	var err error

	res.Enumeration, res.EnumerationTime, err = r.measure(enum, c)
	if err != nil {
		return res, err
	}
	res.Operations = enum.Stats().OperationsCount

	res.Elimination, res.EliminationTime, err = r.measure(elim, c)
	if err != nil {
		return res, err
	}
	res.MaxFactorSize = elim.Stats().MaxFactorSize

	res.Consistent, res.MaxDiff = inference.Compare(res.Enumeration, res.Elimination, r.tolerance)
	if !res.Consistent {
		r.logger.Warn("engines disagree",
			zap.String("case", c.String()),
			zap.Float64("max_diff", res.MaxDiff))
	}
	return res, nil
}

// measure runs the engine repeat times and returns the last distribution
// with the mean wall time
func (r *Runner) measure(e inference.Engine, c Case) (inference.Distribution, time.Duration, error) {
	var (
		dist  inference.Distribution
		total time.Duration
	)
	for i := 0; i < r.repeat; i++ {
		start := time.Now()
		d, err := e.Query(c.Variable, c.Evidence)
		total += time.Since(start)
		if err != nil {
			return nil, 0, err
		}
		dist = d
	}
	return dist, total / time.Duration(r.repeat), nil
}

// BurglarySuite queries the burglary network under the usual observations
func BurglarySuite() Suite {
	t := domain.Bool(true)
	return Suite{
		Name:    "Burglary",
		Network: loader.BurglaryNetwork(),
		Cases: []Case{
			{Variable: "Burglary", Evidence: domain.Evidence{}},
			{Variable: "Burglary", Evidence: domain.Evidence{"JohnCalls": t}},
			{Variable: "Burglary", Evidence: domain.Evidence{"MaryCalls": t}},
			{Variable: "Burglary", Evidence: domain.Evidence{"JohnCalls": t, "MaryCalls": t}},
			{Variable: "Alarm", Evidence: domain.Evidence{"Burglary": t}},
			{Variable: "Alarm", Evidence: domain.Evidence{"Earthquake": t}},
		},
	}
}

// MedicalSuite queries the diagnosis network
func MedicalSuite() Suite {
	t := domain.Bool(true)
	return Suite{
		Name:    "Medical",
		Network: loader.MedicalNetwork(),
		Cases: []Case{
			{Variable: "Disease", Evidence: domain.Evidence{}},
			{Variable: "Disease", Evidence: domain.Evidence{"Symptom1": t}},
			{Variable: "Disease", Evidence: domain.Evidence{"Symptom2": t}},
			{Variable: "Disease", Evidence: domain.Evidence{"TestResult": t}},
			{Variable: "Disease", Evidence: domain.Evidence{"Symptom1": t, "Symptom2": t}},
			{Variable: "Disease", Evidence: domain.Evidence{"Symptom1": t, "TestResult": t}},
			{Variable: "TestResult", Evidence: domain.Evidence{"Disease": t}},
		},
	}
}

// MarginalSuite queries every variable of net without evidence
func MarginalSuite(name string, net *domain.Network) Suite {
	s := Suite{Name: name, Network: net}
	for _, v := range net.Variables() {
		s.Cases = append(s.Cases, Case{Variable: v, Evidence: domain.Evidence{}})
	}
	return s
}

// DefaultSuites returns the built-in suites: both example networks with
// evidence, then the marginals of each
func DefaultSuites() []Suite {
	return []Suite{
		BurglarySuite(),
		MedicalSuite(),
		MarginalSuite("Burglary marginals", loader.BurglaryNetwork()),
		MarginalSuite("Medical marginals", loader.MedicalNetwork()),
	}
}
