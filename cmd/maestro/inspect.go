package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"maestro/internal/catalog"
	"maestro/internal/router"
)

func newRouteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route <goal>",
		Short: "Show which execution path a goal would take, without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goal := strings.Join(args, " ")
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			selector := router.Selector{ComplexityThreshold: cfg.ComplexityThreshold}
			fmt.Printf("route: %s\n", selector.Select(goal))
			fmt.Printf("complexity: %d (threshold %d)\n",
				router.ComplexityScore(goal), cfg.ComplexityThreshold)
			return nil
		},
	}
}

func newAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the built-in specialist agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := color.New(color.Bold)
			for _, spec := range catalog.New().All() {
				name.Printf("%-22s", spec.ID)
				fmt.Printf(" domain=%-10s iters=%-3d workspace=%-5t priority=%d\n",
					spec.Domain, spec.MaxIterations, spec.RequiresWorkspace, spec.Priority)
			}
			return nil
		},
	}
}
