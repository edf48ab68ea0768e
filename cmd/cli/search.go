// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"toolsearch/cmd/common"
	"toolsearch/internal/config"
	"toolsearch/pkg/model"
	"toolsearch/pkg/pipeline"

	"github.com/google/uuid"
)

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to a JSON configuration file (defaults to environment variables)")
	interactive := fs.Bool("interactive", false, "Run in interactive mode")
	verbose := fs.Bool("verbose", false, "Show per-stage timings, reasoning, and recovered errors")
	checkpoints := fs.Bool("checkpoints", false, "Emit a debugging checkpoint at the end of every stage")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: toolsearch search [options] <query>

Run a free-text query through the search pipeline and print the
ranked candidates.

Options:
  -config string
        Path to a JSON configuration file (defaults to environment variables)
  -interactive
        Run in interactive mode for multiple queries
  -verbose
        Show per-stage timings, reasoning, and recovered errors
  -checkpoints
        Emit a debugging checkpoint at the end of every stage

Examples:
  toolsearch search "self hosted cli"
  toolsearch search -verbose "Cursor alternative but cheaper"
  toolsearch search -interactive
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	system, err := common.InitializeSystem(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize system: %w", err)
	}
	defer system.Close()

	opts := pipeline.Options{EnableCheckpoints: *checkpoints}

	if *interactive {
		return runInteractiveSearch(system, opts, *verbose)
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("query is required")
	}

	query := strings.Join(fs.Args(), " ")
	return executeSearch(system, query, opts, *verbose)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv(), nil
	}
	return config.LoadFromFile(path)
}

func runInteractiveSearch(system *common.System, opts pipeline.Options, verbose bool) error {
	fmt.Println("toolsearch - Interactive Mode")
	fmt.Println("Type 'exit' or 'quit' to exit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("Query> ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			fmt.Println("Goodbye!")
			break
		}

		if err := executeSearch(system, query, opts, verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	return nil
}

func executeSearch(system *common.System, query string, opts pipeline.Options, verbose bool) error {
	ctx := context.Background()
	correlationID := uuid.New().String()

	resp := system.Driver.Search(ctx, query, correlationID, opts)

	if verbose {
		displayVerboseResponse(query, correlationID, resp)
	} else {
		displayCompactResponse(resp)
	}
	return nil
}

func displayVerboseResponse(query, correlationID string, resp *pipeline.Response) {
	fmt.Printf("Query: %s\n", query)
	fmt.Printf("Correlation ID: %s\n\n", correlationID)

	if resp.Reasoning != nil {
		if resp.Reasoning.Intent != nil {
			fmt.Printf("Intent: primaryGoal=%s confidence=%.2f\n", resp.Reasoning.Intent.PrimaryGoal, resp.Reasoning.Intent.Confidence)
		}
		if resp.Reasoning.Plan != nil {
			fmt.Printf("Plan: %s\n", resp.Reasoning.Plan.Explanation)
		}
		fmt.Println()
	}

	fmt.Println("=== Execution Stats ===")
	fmt.Printf("Cache: hit=%t type=%q\n", resp.ExecutionStats.CacheHit, resp.ExecutionStats.CacheType)
	fmt.Printf("Total elapsed: %dms\n", resp.ExecutionStats.TotalElapsedMs)
	for _, timing := range resp.ExecutionStats.StageTimings {
		fmt.Printf("  %-20s %5dms\n", timing.Stage, timing.ElapsedMs)
	}
	fmt.Println()

	if len(resp.Errors) > 0 {
		fmt.Println("=== Errors ===")
		for _, e := range resp.Errors {
			fmt.Printf("  [%s] recovered=%t: %v\n", e.Stage, e.Recovered, e.Err)
		}
		fmt.Println()
	}

	displayCandidates(resp.Candidates)
}

func displayCompactResponse(resp *pipeline.Response) {
	if len(resp.Errors) > 0 {
		fmt.Printf("(%d error(s) during execution)\n", len(resp.Errors))
	}
	displayCandidates(resp.Candidates)
}

func displayCandidates(candidates []model.Candidate) {
	if len(candidates) == 0 {
		fmt.Println("No results.")
		return
	}
	for i, c := range candidates {
		fmt.Printf("%d. %s (score=%.3f, source=%s)\n", i+1, c.Metadata.Name, c.Score, c.Source)
		if c.Metadata.Description != "" {
			fmt.Printf("   %s\n", c.Metadata.Description)
		}
	}
}
