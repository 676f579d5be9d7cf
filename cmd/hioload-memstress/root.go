package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/momentics/hioload-mem/pool"
)

var (
	// Global flags
	logLevel   string
	minLevel   uint
	maxLevel   uint
	slabBytes  int
	detectFree bool
	noMmap     bool
)

var rootCmd = &cobra.Command{
	Use:   "hioload-memstress",
	Short: "Stress and inspect the hioload-mem size-class allocator",
	Long: `hioload-memstress builds a size-class pool with the given geometry and
either runs a concurrent allocate/free workload against it (run) or prints
its class table (classes).`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	def := pool.DefaultConfig()
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().UintVar(&minLevel, "min-level", def.MinLevel, "Level of the smallest class (block = 1<<level)")
	rootCmd.PersistentFlags().UintVar(&maxLevel, "max-level", def.MaxLevel, "Level of the largest class")
	rootCmd.PersistentFlags().IntVar(&slabBytes, "slab-bytes", def.SlabBytes, "Slab size per class in bytes")
	rootCmd.PersistentFlags().BoolVar(&detectFree, "detect-double-free", true, "Check block header tags on free")
	rootCmd.PersistentFlags().BoolVar(&noMmap, "no-mmap", false, "Back slabs with the Go heap")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newLogger builds the stderr text logger for the configured level.
func newLogger(w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// poolConfig assembles the pool configuration from global flags.
func poolConfig(log *slog.Logger) pool.Config {
	return pool.Config{
		MinLevel:         minLevel,
		MaxLevel:         maxLevel,
		SlabBytes:        slabBytes,
		DetectDoubleFree: detectFree,
		UseMmap:          !noMmap,
		Logger:           log,
	}
}

// printer formats numbers with digit grouping.
func printer() *message.Printer {
	return message.NewPrinter(language.English)
}
