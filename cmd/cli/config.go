// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"toolsearch/internal/config"
)

func runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: toolsearch config <subcommand> [options]

Manage configuration for the search pipeline.

Subcommands:
  show      Display the current configuration (from env, or a file)
  init      Create a default configuration file
  validate  Validate a configuration file

Examples:
  # Show config loaded from the environment
  toolsearch config show

  # Create a default config file
  toolsearch config init

  # Validate a config file
  toolsearch config validate config.json
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("subcommand is required")
	}

	subcommand := fs.Arg(0)

	switch subcommand {
	case "show":
		return showConfig(fs.Args()[1:])
	case "init":
		return initConfig(fs.Args()[1:])
	case "validate":
		return validateConfig(fs.Args()[1:])
	default:
		return fmt.Errorf("unknown subcommand: %s", subcommand)
	}
}

func showConfig(args []string) error {
	var cfg *config.Config
	var err error

	if len(args) > 0 {
		cfg, err = config.LoadFromFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		cfg = config.LoadFromEnv()
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Println(string(data))
	return nil
}

func initConfig(args []string) error {
	outputPath := "config.json"
	if len(args) > 0 {
		outputPath = args[0]
	}

	if _, err := os.Stat(outputPath); err == nil {
		return fmt.Errorf("config file already exists: %s (delete it first or specify a different path)", outputPath)
	}

	cfg := config.LoadFromEnv()

	if err := cfg.SaveToFile(outputPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created default configuration: %s\n", outputPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the config file to add your API keys")
	fmt.Println("2. Configure your vector store connection")
	fmt.Printf("3. Run 'toolsearch config validate %s' to verify\n", outputPath)

	return nil
}

func validateConfig(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("config file path is required")
	}

	configPath := args[0]

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var errs []string

	if cfg.LLM.Provider == "" {
		errs = append(errs, "llm.provider is required")
	}
	if cfg.LLM.Model == "" {
		errs = append(errs, "llm.model is required")
	}

	if cfg.Embedding.Provider == "" {
		errs = append(errs, "embedding.provider is required")
	}
	if cfg.Embedding.Model == "" {
		errs = append(errs, "embedding.model is required")
	}

	if cfg.VectorStore.Type == "" {
		errs = append(errs, "vector_store.type is required")
	}
	if cfg.VectorStore.Address == "" {
		errs = append(errs, "vector_store.address is required")
	}

	if cfg.DocStore.URL == "" {
		errs = append(errs, "doc_store.url is required")
	}

	if len(errs) > 0 {
		fmt.Println("Validation errors:")
		for _, e := range errs {
			fmt.Printf("  - %s\n", e)
		}
		return fmt.Errorf("configuration is invalid")
	}

	fmt.Printf("Configuration is valid: %s\n", configPath)
	return nil
}
