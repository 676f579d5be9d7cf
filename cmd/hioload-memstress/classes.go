package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/momentics/hioload-mem/pool"
)

func init() {
	rootCmd.AddCommand(newClassesCmd())
}

func newClassesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "Print the size-class table",
		Long: `The classes command builds the pool described by the global flags and
prints, per class, the block size, usable payload, block count and the
thread-local cache watermarks.

Example:
  hioload-memstress classes
  hioload-memstress classes --min-level 6 --max-level 12 --slab-bytes 65536`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses(cmd.OutOrStdout())
		},
	}
}

func runClasses(out io.Writer) error {
	log, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	p, err := pool.NewPool(poolConfig(log))
	if err != nil {
		return fmt.Errorf("failed to build pool: %w", err)
	}
	defer p.Close()

	pr := printer()
	pr.Fprintf(out, "%-5s %10s %10s %9s %5s %5s\n", "CLASS", "BLOCK", "PAYLOAD", "BLOCKS", "HIGH", "LOW")
	total := 0
	for i := 0; i < p.NumClasses(); i++ {
		high, low := p.Watermarks(i)
		pr.Fprintf(out, "%-5d %10d %10d %9d %5d %5d\n",
			i, p.BlockSize(i), p.BlockSize(i)-pool.HeaderSize, p.Capacity(i), high, low)
		total += p.BlockSize(i) * p.Capacity(i)
	}
	pr.Fprintf(out, "max payload %d bytes, %d bytes reserved\n", p.MaxPayload(), total)
	return nil
}
