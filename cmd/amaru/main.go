package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/longregen/amaru/internal/adapters/http/handlers"
	"github.com/longregen/amaru/internal/config"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "amaru",
		Short: "Amaru - evolutionary program optimizer",
		Long: `Amaru evaluates and schedules candidate programs of an evolutionary
AST optimizer: it runs them against a problem's tests on a remote
executor, profiles their runtimes and scores them along weighted cachets.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if configPath != "" {
				cfg, err = config.LoadFile(configPath)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logger, err = newLogger(cfg.Log)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			handlers.Version = version
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $AMARU_CONFIG or ~/.config/amaru/config.yaml)")

	rootCmd.AddCommand(
		evaluateCmd(),
		runCmd(),
		profileCmd(),
		runsCmd(),
		serveCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows current configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Current configuration:")
			fmt.Println()

			fmt.Println("Evaluation:")
			fmt.Printf("  Parallel repeats threshold: %d\n", cfg.Evaluation.ParallelRepeatsThreshold)
			fmt.Printf("  Max parallel tests:         %d\n", cfg.Evaluation.MaxParallelTests)
			fmt.Printf("  Transient retries:          %d (jitter %s)\n", cfg.Evaluation.TransientRetries, cfg.Evaluation.TransientJitter)
			fmt.Printf("  Default timeout:            %s\n", cfg.Evaluation.DefaultTimeout)
			fmt.Printf("  Collect traces:             %t\n", cfg.Evaluation.CollectTraces)
			fmt.Printf("  Fitness cache:              %t\n", cfg.Evaluation.Cache)
			if cfg.Evaluation.ProfileDir != "" {
				fmt.Printf("  Profile dir:                %s\n", cfg.Evaluation.ProfileDir)
			}
			fmt.Println()

			s := cfg.Scheduler
			fmt.Println("Scheduler:")
			fmt.Printf("  Strategy:            %s\n", s.Strategy)
			fmt.Printf("  Population:          %d (elites %d)\n", s.PopulationSize, s.Elites)
			fmt.Printf("  Max generations:     %d (stagnation %d)\n", s.MaxGenerations, s.StagnationLimit)
			fmt.Printf("  Mutation/crossover:  %.2f / %.2f\n", s.MutationProbability, s.CrossoverProbability)
			fmt.Printf("  Sequences:           %d\n", s.Sequences)
			fmt.Printf("  Generational elites: %d\n", s.GenerationalElites)
			fmt.Printf("  Starting groups:     %d\n", s.StartingGroups)
			fmt.Printf("  Combination rate:    %d\n", s.CombinationRate)
			fmt.Printf("  Group similar:       %t\n", s.GroupSimilar)
			fmt.Println()

			fmt.Println("Cachets:")
			for _, name := range cfg.Cachets.Enabled {
				weight, ok := cfg.Cachets.Weights[name]
				if !ok {
					weight = 1
				}
				fmt.Printf("  %-40s weight %g\n", name, weight)
			}
			if cfg.Cachets.LanguageFile != "" {
				fmt.Printf("  Language file:  %s\n", cfg.Cachets.LanguageFile)
			}
			if cfg.Cachets.CurrentSystem != "" {
				fmt.Printf("  Current system: %s\n", cfg.Cachets.CurrentSystem)
			}
			fmt.Println()

			fmt.Println("Store:")
			fmt.Printf("  Backend:     %s\n", cfg.Store.Backend)
			if cfg.Store.Backend == "badger" {
				fmt.Printf("  Badger path: %s\n", cfg.Store.BadgerPath)
			}
			fmt.Printf("  PostgreSQL:  %s\n", maskSecret(cfg.Database.URL))
			fmt.Println()

			fmt.Println("Executor:")
			fmt.Printf("  URL:             %s\n", cfg.Executor.URL)
			fmt.Printf("  Request slack:   %s\n", cfg.Executor.RequestSlack)
			fmt.Printf("  Breaker:         %d failures, %s\n", cfg.Executor.MaxFailures, cfg.Executor.BreakerTimeout)
			fmt.Println()

			fmt.Println("Server:")
			fmt.Printf("  Address:   %s:%d\n", cfg.Server.Host, cfg.Server.Port)
			fmt.Printf("  CORS:      %s\n", strings.Join(cfg.Server.CORSOrigins, ", "))
			fmt.Printf("  API token: %s\n", maskSecret(cfg.Server.APIToken))
			fmt.Println()

			fmt.Println("Environment variables:")
			fmt.Println("  AMARU_CONFIG, AMARU_LOG_LEVEL, AMARU_STORE, AMARU_BADGER_PATH")
			fmt.Println("  AMARU_POSTGRES_URL, AMARU_EXECUTOR_URL, AMARU_SERVER_PORT, AMARU_API_TOKEN")
			fmt.Println("  AMARU_STRATEGY, AMARU_CACHETS, AMARU_LANGUAGE_FILE")

			return nil
		},
	}
}

// versionCmd shows version information
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Amaru %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)
		},
	}
}
