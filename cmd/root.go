package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/dinersim/dinersim/internal/models"
	"github.com/dinersim/dinersim/internal/oracle"
	"github.com/dinersim/dinersim/internal/simulator"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dinersim",
	Short: "Simulates restaurant choice under review-presentation policies",
	Long: `dinersim runs a synthetic restaurant market: generated customers see
review sets filtered by each restaurant's presentation policy, pick a
restaurant through a decision oracle and leave visits, revenue and new
reviews behind for the next arrival.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := models.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		sim, err := simulator.NewSimulator(cfg, buildOracle(cfg))
		if err != nil {
			return err
		}
		return sim.Run(context.Background())
	},
}

// buildOracle uses the generative service when an API key is present
// and the seeded local oracle otherwise.
func buildOracle(cfg *models.Config) oracle.Oracle {
	if cfg.OracleAPIKey != "" {
		return oracle.NewOpenAIOracle(cfg)
	}
	return oracle.NewLocalOracle(int64(cfg.Seed))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is examples/config.json)")

	rootCmd.Flags().Int("seed", 42, "Random seed for simulation")
	rootCmd.Flags().Int("days", 10, "Number of simulated days")
	rootCmd.Flags().Int("customers-per-day", 10, "Customers generated per day")
	rootCmd.Flags().String("oracle-model", "gpt-4.1-mini", "Chat model used for the decision oracle")
	rootCmd.Flags().Int("exposure-size", 5, "Reviews initially shown per restaurant")
	rootCmd.Flags().Int("supplement-size", 3, "Extra reviews added when the exposure is biased")
	rootCmd.Flags().String("output-path", "data/outputs", "Base directory for run artifacts")
	rootCmd.Flags().String("output-folder", "", "Run folder created under the output path")
	rootCmd.Flags().String("stream-format", "", "Live stream format: console, json or parquet")
	rootCmd.Flags().Bool("kafka-enabled", false, "Stream events to Kafka")
	rootCmd.Flags().String("kafka-broker-list", "localhost:9092", "Kafka broker list")
	rootCmd.Flags().String("database-url", "", "Postgres URL for persisting the finished run")

	viper.BindPFlags(rootCmd.Flags())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
