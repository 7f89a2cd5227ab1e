package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"bayesnet/internal/domain"
	"bayesnet/internal/inference"
)

// styles used for terminal output; all plain when stdout is not a terminal
type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	dim     lipgloss.Style
	barFull lipgloss.Style
}

func newStyles(w io.Writer) styles {
	if !isTerminal(w) {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain}
	}
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		value:   lipgloss.NewStyle().Bold(true),
		ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		barFull: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
}

// isTerminal reports whether stream is a terminal file
func isTerminal(stream any) bool {
	f, ok := stream.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

const barWidth = 30

// printDistribution writes one line per domain value with a bar
func printDistribution(w io.Writer, st styles, node *domain.Node, dist inference.Distribution) {
	width := 0
	for _, v := range node.Domain {
		if n := len(v.String()); n > width {
			width = n
		}
	}
	for _, v := range node.Domain {
		p := dist[v]
		filled := int(p*barWidth + 0.5)
		bar := st.barFull.Render(strings.Repeat("█", filled)) + st.dim.Render(strings.Repeat("·", barWidth-filled))
		fmt.Fprintf(w, "  %s = %-*s %s %s\n",
			st.label.Render(node.Name), width, v.String(), st.value.Render(fmt.Sprintf("%.6f", p)), bar)
	}
}

// printStats writes the cost counters of the last query
func printStats(w io.Writer, st styles, s inference.Stats) {
	line := fmt.Sprintf("  %s: %v", s.Algorithm, s.ExecutionTime)
	if s.OperationsCount > 0 {
		line += fmt.Sprintf(", %d operations", s.OperationsCount)
	}
	if s.MaxFactorSize > 0 {
		line += fmt.Sprintf(", max factor %d, max factors %d", s.MaxFactorSize, s.MaxTotalFactors)
	}
	fmt.Fprintln(w, st.dim.Render(line))
}

// printNetwork writes a structural summary of net
func printNetwork(w io.Writer, st styles, net *domain.Network) {
	fmt.Fprintln(w, st.title.Render("Network: "+net.Name))
	if net.Description != "" {
		fmt.Fprintln(w, "  "+net.Description)
	}
	fmt.Fprintf(w, "  %d variables, %d edges\n", net.Len(), net.EdgeCount())

	if order, err := net.TopologicalOrder(); err == nil {
		fmt.Fprintf(w, "  Topological order: %s\n", strings.Join(order, " -> "))
	}

	for _, node := range net.Nodes() {
		values := make([]string, 0, len(node.Domain))
		for _, v := range node.Domain {
			values = append(values, v.String())
		}
		parents := "none"
		if len(node.Parents) > 0 {
			parents = strings.Join(node.Parents, ", ")
		}
		fmt.Fprintf(w, "  %s  domain {%s}  parents: %s  cpt rows: %d\n",
			st.label.Render(node.Name), strings.Join(values, ", "), parents, len(node.CPT))
		if node.Description != "" {
			fmt.Fprintln(w, st.dim.Render("      "+node.Description))
		}
	}
}
