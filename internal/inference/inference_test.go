package inference

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bayesnet/internal/domain"
	"bayesnet/internal/loader"
)

var (
	T = domain.Bool(true)
	F = domain.Bool(false)
)

func engines(net *domain.Network) []Engine {
	return []Engine{
		NewEnumeration(net, WithLogger(zap.NewNop())),
		NewElimination(net, WithLogger(zap.NewNop())),
	}
}

func assertNormalized(t *testing.T, dist Distribution) {
	t.Helper()
	for v, p := range dist {
		assert.GreaterOrEqual(t, p, 0.0, "P(%s)", v)
		assert.LessOrEqual(t, p, 1.0, "P(%s)", v)
		assert.False(t, math.IsNaN(p), "P(%s) is NaN", v)
	}
	assert.InDelta(t, 1.0, dist.Total(), 1e-9)
}

func TestBurglaryGivenBothCalls(t *testing.T) {
	net := loader.BurglaryNetwork()
	evidence := domain.Evidence{"JohnCalls": T, "MaryCalls": T}

	for _, e := range engines(net) {
		t.Run(e.Name(), func(t *testing.T) {
			dist, err := e.Query("Burglary", evidence)
			require.NoError(t, err)
			assert.InDelta(t, 0.2842, dist[T], 1e-4)
			assert.InDelta(t, 0.7158, dist[F], 1e-4)
			assertNormalized(t, dist)
		})
	}
}

func TestDiseaseGivenSymptom(t *testing.T) {
	net := loader.MedicalNetwork()
	evidence := domain.Evidence{"Symptom1": T}

	for _, e := range engines(net) {
		t.Run(e.Name(), func(t *testing.T) {
			dist, err := e.Query("Disease", evidence)
			require.NoError(t, err)
			assert.InDelta(t, 0.4706, dist[T], 1e-4)
			assertNormalized(t, dist)
		})
	}
}

func TestPriorWithoutEvidence(t *testing.T) {
	net := loader.BurglaryNetwork()
	// P(Alarm) = sum over B,E of P(B)P(E)P(A|B,E)
	want := 0.001*0.002*0.95 + 0.001*0.998*0.94 + 0.999*0.002*0.29 + 0.999*0.998*0.001

	for _, e := range engines(net) {
		t.Run(e.Name(), func(t *testing.T) {
			dist, err := e.Query("Alarm", nil)
			require.NoError(t, err)
			assert.InDelta(t, want, dist[T], 1e-12)
		})
	}
}

func TestRootEvidenceScalarFactor(t *testing.T) {
	// Burglary's own factor collapses to a scalar under this evidence;
	// the answer must still come from the remaining factors
	net := loader.BurglaryNetwork()
	want := 0.002*0.95 + 0.998*0.94

	for _, e := range engines(net) {
		t.Run(e.Name(), func(t *testing.T) {
			dist, err := e.Query("Alarm", domain.Evidence{"Burglary": T})
			require.NoError(t, err)
			assert.InDelta(t, want, dist[T], 1e-12)
		})
	}
}

func TestEnginesAgree(t *testing.T) {
	for _, name := range loader.Examples() {
		net, err := loader.Example(name)
		require.NoError(t, err)
		vars := net.Variables()

		cases := []domain.Evidence{{}}
		for _, ev := range vars {
			for _, v := range []domain.Value{T, F} {
				cases = append(cases, domain.Evidence{ev: v})
			}
		}
		for i := 0; i+1 < len(vars); i++ {
			cases = append(cases, domain.Evidence{vars[i]: T, vars[i+1]: F})
		}

		for _, query := range vars {
			for _, evidence := range cases {
				if evidence.Has(query) {
					continue
				}
				enum := NewEnumeration(net)
				elim := NewElimination(net)

				a, err := enum.Query(query, evidence)
				require.NoError(t, err)
				b, err := elim.Query(query, evidence)
				require.NoError(t, err)

				ok, diff := Compare(a, b, 1e-6)
				assert.True(t, ok, "%s: P(%s | %s) differs by %g", name, query, evidence, diff)
				assertNormalized(t, a)
				assertNormalized(t, b)
			}
		}
	}
}

func TestUnknownQueryVariable(t *testing.T) {
	net := loader.BurglaryNetwork()

	for _, e := range engines(net) {
		t.Run(e.Name(), func(t *testing.T) {
			_, err := e.Query("Nope", nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrQueryVariableNotFound))

			var qe *QueryError
			require.True(t, errors.As(err, &qe))
			assert.Equal(t, "Nope", qe.Variable)
		})
	}
}

func TestInconsistentEvidenceFallsBackToUniform(t *testing.T) {
	net := loader.BurglaryNetwork()
	evidence := domain.Evidence{"Burglary": domain.Text("maybe")}

	for _, e := range engines(net) {
		t.Run(e.Name(), func(t *testing.T) {
			dist, err := e.Query("Alarm", evidence)
			require.NoError(t, err)
			assert.Equal(t, 0.5, dist[T])
			assert.Equal(t, 0.5, dist[F])
		})
	}
}

func TestImpossibleEvidenceFallsBackToUniform(t *testing.T) {
	net := domain.NewNetwork("certain")
	a := domain.NewNode("A", []domain.Value{T, F})
	a.SetCPTEntry(nil, map[domain.Value]float64{T: 1, F: 0})
	b := domain.NewNode("B", []domain.Value{domain.Text("x"), domain.Text("y"), domain.Text("z")})
	b.SetCPTEntry(nil, map[domain.Value]float64{domain.Text("x"): 0.2, domain.Text("y"): 0.3, domain.Text("z"): 0.5})
	require.NoError(t, net.AddNode(a))
	require.NoError(t, net.AddNode(b))

	for _, e := range engines(net) {
		t.Run(e.Name(), func(t *testing.T) {
			dist, err := e.Query("B", domain.Evidence{"A": F})
			require.NoError(t, err)
			for _, v := range b.Domain {
				assert.InDelta(t, 1.0/3.0, dist[v], 1e-12)
			}
		})
	}
}

func TestNonTopologicalInsertionOrder(t *testing.T) {
	net := domain.NewNetwork("reversed")
	child := domain.NewNode("Child", []domain.Value{T, F})
	parent := domain.NewNode("Parent", []domain.Value{T, F})
	require.NoError(t, net.AddNode(child))
	require.NoError(t, net.AddNode(parent))
	require.NoError(t, net.AddEdge("Parent", "Child"))
	parent.SetCPTEntry(nil, map[domain.Value]float64{T: 0.3, F: 0.7})
	child.SetCPTEntry(domain.Assignment{"Parent": T}, map[domain.Value]float64{T: 0.9, F: 0.1})
	child.SetCPTEntry(domain.Assignment{"Parent": F}, map[domain.Value]float64{T: 0.2, F: 0.8})

	want := 0.3*0.9 + 0.7*0.2
	for _, e := range engines(net) {
		t.Run(e.Name(), func(t *testing.T) {
			dist, err := e.Query("Child", nil)
			require.NoError(t, err)
			assert.InDelta(t, want, dist[T], 1e-12)
		})
	}
}

func TestMultiValuedDomains(t *testing.T) {
	low, mid, high := domain.Text("low"), domain.Text("mid"), domain.Text("high")
	net := domain.NewNetwork("weather")
	season := domain.NewNode("Season", []domain.Value{domain.Int(1), domain.Int(2)})
	temp := domain.NewNode("Temp", []domain.Value{low, mid, high})
	ice := domain.NewNode("Ice", []domain.Value{T, F})
	for _, n := range []*domain.Node{season, temp, ice} {
		require.NoError(t, net.AddNode(n))
	}
	require.NoError(t, net.AddEdge("Season", "Temp"))
	require.NoError(t, net.AddEdge("Temp", "Ice"))
	require.NoError(t, net.AddEdge("Season", "Ice"))

	season.SetCPTEntry(nil, map[domain.Value]float64{domain.Int(1): 0.4, domain.Int(2): 0.6})
	temp.SetCPTEntry(domain.Assignment{"Season": domain.Int(1)}, map[domain.Value]float64{low: 0.7, mid: 0.2, high: 0.1})
	temp.SetCPTEntry(domain.Assignment{"Season": domain.Int(2)}, map[domain.Value]float64{low: 0.1, mid: 0.3, high: 0.6})
	for _, s := range season.Domain {
		for i, tv := range temp.Domain {
			p := 0.8 / float64(i+1)
			if s == domain.Int(2) {
				p /= 2
			}
			ice.SetCPTEntry(domain.Assignment{"Season": s, "Temp": tv}, map[domain.Value]float64{T: p, F: 1 - p})
		}
	}
	require.NoError(t, net.CheckCPTCompleteness())

	enum := NewEnumeration(net)
	elim := NewElimination(net)
	for _, q := range []string{"Season", "Temp"} {
		a, err := enum.Query(q, domain.Evidence{"Ice": T})
		require.NoError(t, err)
		b, err := elim.Query(q, domain.Evidence{"Ice": T})
		require.NoError(t, err)
		ok, diff := Compare(a, b, 1e-9)
		assert.True(t, ok, "P(%s | Ice) differs by %g", q, diff)
	}
}

func TestStats(t *testing.T) {
	net := loader.BurglaryNetwork()
	evidence := domain.Evidence{"JohnCalls": T, "MaryCalls": T}

	t.Run("enumeration counts recursive calls", func(t *testing.T) {
		e := NewEnumeration(net)
		_, err := e.Query("Burglary", evidence)
		require.NoError(t, err)
		first := e.Stats()
		assert.Equal(t, AlgorithmEnumeration, first.Algorithm)
		assert.Positive(t, first.OperationsCount)

		_, err = e.Query("Burglary", evidence)
		require.NoError(t, err)
		assert.Equal(t, first.OperationsCount, e.Stats().OperationsCount, "stats are overwritten, not accumulated")
	})

	t.Run("elimination tracks factor sizes", func(t *testing.T) {
		e := NewElimination(net)
		_, err := e.Query("Burglary", evidence)
		require.NoError(t, err)
		stats := e.Stats()
		assert.Equal(t, AlgorithmElimination, stats.Algorithm)
		assert.GreaterOrEqual(t, stats.MaxFactorSize, 8)
		assert.Equal(t, 5, stats.MaxTotalFactors)
	})
}

func TestHelpers(t *testing.T) {
	net := loader.MedicalNetwork()
	e := NewElimination(net)

	p, err := MarginalProbability(e, "Disease", T, domain.Evidence{"Symptom1": T})
	require.NoError(t, err)
	assert.InDelta(t, 0.4706, p, 1e-4)

	v, prob, err := MostProbableValue(e, net, "Disease", domain.Evidence{"Symptom1": T})
	require.NoError(t, err)
	assert.Equal(t, F, v)
	assert.InDelta(t, 1-0.4706, prob, 1e-4)

	v, _, err = MostProbableValue(e, net, "Disease", domain.Evidence{"Symptom1": T, "Symptom2": T, "TestResult": T})
	require.NoError(t, err)
	assert.Equal(t, T, v)

	_, _, err = MostProbableValue(e, net, "Nope", nil)
	assert.Error(t, err)

	// a variable the engine knows but the given network lacks
	other := loader.BurglaryNetwork()
	_, _, err = MostProbableValue(e, other, "Disease", nil)
	assert.True(t, errors.Is(err, ErrQueryVariableNotFound), "got %v", err)
}

func TestNew(t *testing.T) {
	net := loader.MedicalNetwork()
	for _, name := range []string{AlgorithmEnumeration, AlgorithmElimination, "elimination"} {
		e, err := New(name, net)
		require.NoError(t, err)
		assert.NotNil(t, e)
	}
	_, err := New("gibbs", net)
	assert.True(t, errors.Is(err, ErrUnknownAlgorithm))
}

func TestCompare(t *testing.T) {
	a := Distribution{T: 0.3, F: 0.7}
	b := Distribution{T: 0.3000001, F: 0.6999999}
	ok, diff := Compare(a, b, 1e-6)
	assert.True(t, ok)
	assert.InDelta(t, 1e-7, diff, 1e-9)

	ok, _ = Compare(a, Distribution{T: 1}, 1e-6)
	assert.False(t, ok)
}
