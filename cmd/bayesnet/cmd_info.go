package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bayesnet/internal/codec"
)

func newInfoCmd(a *app) *cobra.Command {
	var networkPath, example string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the structure of a network",
		RunE: func(cmd *cobra.Command, args []string) error {
			net, err := a.loadNetwork(networkPath, example)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			st := newStyles(w)
			printNetwork(w, st, net)

			if err := net.CheckCPTCompleteness(); err != nil {
				fmt.Fprintln(w, st.warn.Render("  "+err.Error()))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&networkPath, "network", "n", "", "Network file (.json, .yaml)")
	cmd.Flags().StringVar(&example, "example", "", "Built-in example network: burglary, medical")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check network files without querying them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			st := newStyles(w)
			l := a.loader()

			failed := 0
			for _, path := range args {
				net, err := l.LoadFile(path)
				if err != nil {
					failed++
					fmt.Fprintf(w, "%s %s\n", st.warn.Render("FAIL"), path)
					fmt.Fprintf(w, "  %v\n", err)
					continue
				}
				fmt.Fprintf(w, "%s %s (%s: %d variables, %d edges)\n",
					st.ok.Render("OK"), path, net.Name, net.Len(), net.EdgeCount())
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d network file(s) invalid", failed, len(args))
			}
			return nil
		},
	}
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var networkPath, example, format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a network as JSON or YAML",
		Long: `Writes a network document to stdout. Combine with --example to get a
starting point for your own networks:

  bayesnet export --example medical --format yaml > medical.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			net, err := a.loadNetwork(networkPath, example)
			if err != nil {
				return err
			}
			c, err := codec.ForFormat(format)
			if err != nil {
				return err
			}
			return c.Export(codec.FromNetwork(net), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&networkPath, "network", "n", "", "Network file (.json, .yaml)")
	cmd.Flags().StringVar(&example, "example", "", "Built-in example network: burglary, medical")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	return cmd
}
