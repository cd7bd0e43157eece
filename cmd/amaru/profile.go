package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/longregen/amaru/internal/profile"
)

// profileCmd summarizes raw timing sample files
func profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile <samples.rtp>...",
		Short: "Summarize runtime sample files",
		Long: `Print the runtime profile of one or more .rtp files, as written to
evaluation.profile_dir for sequentially benchmarked tests.`,
		Args: cobra.MinimumNArgs(1),
		// Sample files need no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for i, path := range args {
				if i > 0 {
					fmt.Fprintln(out)
				}
				if len(args) > 1 {
					fmt.Fprintf(out, "%s:\n", path)
				}
				if err := reportFile(out, path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func reportFile(out io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	samples, err := profile.ReadSamples(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	p, err := profile.New(samples)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return p.Report(out)
}
