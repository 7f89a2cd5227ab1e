package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"bayesnet/internal/config"
	"bayesnet/internal/domain"
	"bayesnet/internal/loader"
)

func newInteractiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Menu driven session for loading networks and running queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &session{
				app:    a,
				in:     bufio.NewScanner(cmd.InOrStdin()),
				out:    cmd.OutOrStdout(),
				prompt: isTerminal(cmd.InOrStdin()),
			}
			s.st = newStyles(s.out)
			return s.run()
		},
	}
}

// session is one interactive run; the loaded network persists across
// menu choices
type session struct {
	app    *app
	in     *bufio.Scanner
	out    io.Writer
	st     styles
	prompt bool
	net    *domain.Network
}

func (s *session) run() error {
	fmt.Fprintln(s.out, s.st.title.Render("bayesnet interactive"))

	for {
		s.menu()
		choice, ok := s.ask("Choice")
		if !ok {
			return s.in.Err()
		}

		var err error
		switch strings.ToLower(choice) {
		case "1", "load":
			err = s.loadFile()
		case "2", "example":
			err = s.loadExample()
		case "3", "query":
			err = s.query(s.app.cfg.Inference.Algorithm)
		case "4", "info":
			err = s.info()
		case "5", "compare":
			err = s.query(config.AlgorithmBoth)
		case "6", "q", "quit", "exit":
			fmt.Fprintln(s.out, "Bye")
			return nil
		case "":
			continue
		default:
			err = fmt.Errorf("unknown choice %q", choice)
		}

		if err != nil {
			fmt.Fprintln(s.out, s.st.warn.Render("Error: "+err.Error()))
		}
	}
}

func (s *session) menu() {
	if !s.prompt {
		return
	}
	loaded := "none"
	if s.net != nil {
		loaded = s.net.Name
	}
	fmt.Fprintf(s.out, "\n%s %s\n", s.st.dim.Render("Network:"), loaded)
	fmt.Fprintln(s.out, "  1. Load network file")
	fmt.Fprintln(s.out, "  2. Load example network")
	fmt.Fprintln(s.out, "  3. Query")
	fmt.Fprintln(s.out, "  4. Network info")
	fmt.Fprintln(s.out, "  5. Compare algorithms")
	fmt.Fprintln(s.out, "  6. Quit")
}

// ask prints a prompt and reads one trimmed line. ok is false at end of
// input.
func (s *session) ask(label string) (string, bool) {
	if s.prompt {
		fmt.Fprintf(s.out, "%s: ", s.st.label.Render(label))
	}
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

func (s *session) loadFile() error {
	path, ok := s.ask("File")
	if !ok || path == "" {
		return fmt.Errorf("no file given")
	}
	net, err := s.app.loader().LoadFile(path)
	if err != nil {
		return err
	}
	s.net = net
	fmt.Fprintf(s.out, "Loaded %s: %d variables, %d edges\n", net.Name, net.Len(), net.EdgeCount())
	return nil
}

func (s *session) loadExample() error {
	name, ok := s.ask(fmt.Sprintf("Example %v", loader.Examples()))
	if !ok {
		return fmt.Errorf("no example given")
	}
	net, err := loader.Example(strings.ToLower(name))
	if err != nil {
		return err
	}
	s.net = net
	fmt.Fprintf(s.out, "Loaded %s: %d variables, %d edges\n", net.Name, net.Len(), net.EdgeCount())
	return nil
}

func (s *session) requireNetwork() error {
	if s.net == nil {
		return fmt.Errorf("no network loaded")
	}
	return nil
}

func (s *session) query(algorithm string) error {
	if err := s.requireNetwork(); err != nil {
		return err
	}
	if s.prompt {
		fmt.Fprintf(s.out, "Variables: %s\n", strings.Join(s.net.Variables(), ", "))
	}

	variable, ok := s.ask("Query variable")
	if !ok || variable == "" {
		return fmt.Errorf("no query variable given")
	}
	raw, ok := s.ask("Evidence (A=x, B=y)")
	if !ok {
		return fmt.Errorf("no evidence given")
	}
	evidence, err := loader.ParseEvidenceFor(s.net, raw)
	if err != nil {
		return err
	}
	return s.app.runQuery(s.out, s.net, variable, evidence, algorithm)
}

func (s *session) info() error {
	if err := s.requireNetwork(); err != nil {
		return err
	}
	printNetwork(s.out, s.st, s.net)
	return nil
}
