package main

import (
	"ardi/internal/core"
	"ardi/internal/types"
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newEngine builds and starts the pipeline for one command invocation.
func newEngine(ctx context.Context) (*core.Engine, error) {
	engine, err := core.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	engine.Start(ctx)
	return engine, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	engine, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	question := strings.Join(args, " ")
	answer, err := engine.Answer(ctx, question)
	if err != nil {
		return err
	}

	printAnswer(answer)
	if explain {
		printExplanation(engine, answer)
	}
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Println("ardi interactive session. Type a question, or 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		answer, err := engine.Answer(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		printAnswer(answer)
	}
	return scanner.Err()
}

func runFeedback(cmd *cobra.Command, args []string) error {
	engine, err := core.NewEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	processID := args[0]
	rating := types.Rating(args[1])
	note, _ := cmd.Flags().GetString("note")
	categories, _ := cmd.Flags().GetStringSlice("categories")

	feedbackID, err := engine.SubmitFeedback(processID, rating, note, categories)
	if err != nil {
		return err
	}

	logger.Info("feedback recorded", zap.String("feedback_id", feedbackID))
	fmt.Printf("Recorded feedback %s\n", feedbackID)
	return nil
}

func runInsights(cmd *cobra.Command, args []string) error {
	engine, err := core.NewEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	insights := engine.Insights()
	if len(insights) == 0 {
		fmt.Println("No insights yet. Record some interactions first.")
		return nil
	}

	for _, in := range insights {
		fmt.Printf("[%s] %s\n", in.Type, in.Description)
		fmt.Printf("    recommendation: %s (confidence %.2f, impact %s)\n",
			in.Recommendation, in.Confidence, in.Impact)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	engine, err := core.NewEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	data, err := json.MarshalIndent(engine.Stats(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runKnowledgeList(cmd *cobra.Command, args []string) error {
	engine, err := core.NewEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	for _, collection := range engine.Library().Collections() {
		fmt.Printf("%s (%d entries)\n", collection.Name, len(collection.Entries))
		for _, entry := range collection.Entries {
			fmt.Printf("  %-32s %s\n", entry.ID, entry.Title)
		}
	}
	return nil
}

func printAnswer(answer *types.Answer) {
	fmt.Println(answer.Content)
	if answer.TableContent != "" {
		fmt.Println()
		fmt.Println(answer.TableContent)
	}
	fmt.Printf("\n[source: %s", answer.Source)
	if answer.Confidence > 0 {
		fmt.Printf(", confidence: %.2f", answer.Confidence)
	}
	fmt.Println("]")
}

func printExplanation(engine *core.Engine, answer *types.Answer) {
	fmt.Printf("process: %s\n", answer.ProcessID)
	for _, process := range engine.History() {
		if process.ID != answer.ProcessID {
			continue
		}
		for _, step := range process.AnalysisSteps {
			fmt.Printf("  step: %s\n", step)
		}
		for _, src := range process.InformationGathered {
			fmt.Printf("  source: %s (type=%s confidence=%.2f relevance=%.2f)\n",
				src.Source, src.Type, src.Confidence, src.Relevance)
		}
		for _, gap := range process.KnowledgeGaps {
			fmt.Printf("  gap: %s\n", gap)
		}
	}
}
