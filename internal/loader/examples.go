package loader

import (
	"fmt"
	"sort"

	"bayesnet/internal/domain"
)

var (
	yes = domain.Bool(true)
	no  = domain.Bool(false)
)

// examples maps example names to their builders
var examples = map[string]func() *domain.Network{
	"burglary": BurglaryNetwork,
	"medical":  MedicalNetwork,
}

// Examples returns the names of the built-in networks
func Examples() []string {
	names := make([]string, 0, len(examples))
	for name := range examples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Example builds a built-in network by name
func Example(name string) (*domain.Network, error) {
	build, ok := examples[name]
	if !ok {
		return nil, fmt.Errorf("unknown example network %q", name)
	}
	return build(), nil
}

// BurglaryNetwork returns the alarm network from Russell & Norvig:
// Burglary and Earthquake cause Alarm, which makes John and Mary call.
func BurglaryNetwork() *domain.Network {
	net := domain.NewNetwork("Burglary")
	net.Description = "Russell & Norvig burglary alarm network"

	burglary := boolNode("Burglary", "A burglary is in progress")
	burglary.SetCPTEntry(nil, dist(0.001))

	earthquake := boolNode("Earthquake", "An earthquake occurred")
	earthquake.SetCPTEntry(nil, dist(0.002))

	alarm := boolNode("Alarm", "The alarm is ringing")
	alarm.SetCPTEntry(domain.Assignment{"Burglary": yes, "Earthquake": yes}, dist(0.95))
	alarm.SetCPTEntry(domain.Assignment{"Burglary": yes, "Earthquake": no}, dist(0.94))
	alarm.SetCPTEntry(domain.Assignment{"Burglary": no, "Earthquake": yes}, dist(0.29))
	alarm.SetCPTEntry(domain.Assignment{"Burglary": no, "Earthquake": no}, dist(0.001))

	john := boolNode("JohnCalls", "John calls")
	john.SetCPTEntry(domain.Assignment{"Alarm": yes}, dist(0.90))
	john.SetCPTEntry(domain.Assignment{"Alarm": no}, dist(0.05))

	mary := boolNode("MaryCalls", "Mary calls")
	mary.SetCPTEntry(domain.Assignment{"Alarm": yes}, dist(0.70))
	mary.SetCPTEntry(domain.Assignment{"Alarm": no}, dist(0.01))

	mustBuild(net,
		[]*domain.Node{burglary, earthquake, alarm, john, mary},
		[][2]string{
			{"Burglary", "Alarm"},
			{"Earthquake", "Alarm"},
			{"Alarm", "JohnCalls"},
			{"Alarm", "MaryCalls"},
		})
	return net
}

// MedicalNetwork returns a diagnosis network where Disease causes two
// symptoms and a test result
func MedicalNetwork() *domain.Network {
	net := domain.NewNetwork("Medical")
	net.Description = "Simple medical diagnosis network"

	disease := boolNode("Disease", "The patient has the disease")
	disease.SetCPTEntry(nil, dist(0.1))

	symptom1 := boolNode("Symptom1", "Fever")
	symptom1.SetCPTEntry(domain.Assignment{"Disease": yes}, dist(0.8))
	symptom1.SetCPTEntry(domain.Assignment{"Disease": no}, dist(0.1))

	symptom2 := boolNode("Symptom2", "Pain")
	symptom2.SetCPTEntry(domain.Assignment{"Disease": yes}, dist(0.7))
	symptom2.SetCPTEntry(domain.Assignment{"Disease": no}, dist(0.05))

	test := boolNode("TestResult", "Lab test is positive")
	test.SetCPTEntry(domain.Assignment{"Disease": yes}, dist(0.9))
	test.SetCPTEntry(domain.Assignment{"Disease": no}, dist(0.05))

	mustBuild(net,
		[]*domain.Node{disease, symptom1, symptom2, test},
		[][2]string{
			{"Disease", "Symptom1"},
			{"Disease", "Symptom2"},
			{"Disease", "TestResult"},
		})
	return net
}

func boolNode(name, description string) *domain.Node {
	node := domain.NewNode(name, []domain.Value{yes, no})
	node.Description = description
	return node
}

// dist returns {true: p, false: 1-p}
func dist(p float64) map[domain.Value]float64 {
	return map[domain.Value]float64{yes: p, no: 1 - p}
}

func mustBuild(net *domain.Network, nodes []*domain.Node, edges [][2]string) {
	for _, node := range nodes {
		if err := net.AddNode(node); err != nil {
			panic(err)
		}
	}
	for _, e := range edges {
		if err := net.AddEdge(e[0], e[1]); err != nil {
			panic(err)
		}
	}
}
