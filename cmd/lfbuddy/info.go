package main

import (
	"github.com/spf13/cobra"

	"github.com/momentics/lfbuddy/control"
)

var infoFlags = allocatorFlags{pages: 4096, pageSize: 4096, backend: "heap", steal: true}

func init() {
	cmd := newInfoCmd()
	cmd.Flags().IntVar(&infoFlags.pages, "pages", infoFlags.pages, "Number of pages to manage")
	cmd.Flags().IntVar(&infoFlags.pageSize, "page-size", infoFlags.pageSize, "Page size in bytes (power of two)")
	cmd.Flags().IntVar(&infoFlags.cpus, "cpus", 0, "Per-CPU free-list sets (0 = detected)")
	cmd.Flags().StringVar(&infoFlags.backend, "backend", infoFlags.backend, "Metadata backend: heap or mmap")
	rootCmd.AddCommand(cmd)
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Report allocator geometry and metadata size",
		Long: `The info command builds an allocator for the requested range and reports
its tree shape, the metadata drawn from the backend and the initial free blocks.

Example:
  lfbuddy info --pages 4096
  lfbuddy info --pages 1000000 --page-size 65536 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo()
		},
	}
	return cmd
}

func runInfo() error {
	a, err := infoFlags.newAllocator()
	if err != nil {
		return err
	}
	defer a.Close()

	dp := control.NewDebugProbes()
	control.RegisterAllocatorProbes(dp, a)
	control.RegisterPlatformProbes(dp)

	if jsonOut {
		return printJSON(dp.DumpState())
	}

	g := a.Geometry()
	printInfo("\nAllocator Geometry:\n")
	printInfo("  Pages:      %d x %d bytes (%s)\n", g.PageCount, g.PageSize, formatBytes(g.PageCount*g.PageSize))
	printInfo("  Max order:  %d\n", g.MaxOrder)
	printInfo("  Root order: %d\n", g.RootOrder)
	printInfo("  Tree nodes: %d\n", g.Nodes)
	printInfo("  CPUs:       %d\n", g.CPUs)
	printInfo("  Metadata:   %s\n", formatBytes(g.MetadataBytes))

	printInfo("\nInitial free blocks:\n")
	for _, b := range a.Snapshot() {
		printInfo("  %s (%d pages)\n", b, b.Pages())
	}
	if verbose {
		printInfo("\nProbes:\n")
		state := dp.DumpState()
		for _, name := range dp.Names() {
			printInfo("  %s: %v\n", name, state[name])
		}
	}
	return nil
}
