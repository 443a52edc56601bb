package main

import (
	"ardi/internal/config"
	"ardi/internal/logging"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	workspace  string
	explain    bool

	// Logger
	logger *zap.Logger
	cfg    *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ardi",
	Short: "ardi - self-learning question answering pipeline",
	Long: `ardi answers questions from curated knowledge collections, generates
new knowledge entries when retrieval comes up short, and learns from
usage patterns and feedback over time.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("category logging disabled", zap.Error(err))
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// askCmd answers a single question
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Long: `Runs one question through the full pipeline and prints the answer.

With --explain, also prints the information sources consulted and the
thinking process behind the answer.

Example:
  ardi ask "what is a lien"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

// chatCmd starts an interactive session
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question session",
	RunE:  runChat,
}

// feedbackCmd records a rating against a prior answer
var feedbackCmd = &cobra.Command{
	Use:   "feedback [process-id] [positive|neutral|negative]",
	Short: "Record feedback for a previous answer",
	Long: `Records a user rating against the thinking process of a previous
answer. The process id is printed by ask/chat when --explain is set.

Example:
  ardi feedback 6e1f... negative --note "answer was out of date"`,
	Args: cobra.ExactArgs(2),
	RunE: runFeedback,
}

// insightsCmd regenerates and prints learning insights
var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Regenerate and print learning insights",
	RunE:  runInsights,
}

// statsCmd shows pipeline statistics
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge and learning statistics",
	RunE:  runStats,
}

// knowledgeCmd groups knowledge inspection subcommands
var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Inspect the loaded knowledge collections",
}

var knowledgeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections and their entries",
	RunE:  runKnowledgeList,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "ardi.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")

	askCmd.Flags().BoolVar(&explain, "explain", false, "Print sources and thinking process")

	var note string
	var categories []string
	feedbackCmd.Flags().StringVar(&note, "note", "", "Specific feedback text")
	feedbackCmd.Flags().StringSliceVar(&categories, "categories", nil, "Affected categories")

	knowledgeCmd.AddCommand(knowledgeListCmd)

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(knowledgeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
