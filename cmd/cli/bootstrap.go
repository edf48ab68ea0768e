// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"toolsearch/cmd/common"
	"toolsearch/pkg/cache"
)

func runBootstrap(args []string) error {
	fs := flag.NewFlagSet("bootstrap", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to a JSON configuration file (defaults to environment variables)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: toolsearch bootstrap [options]

Idempotently creates the vector collections and structured-store
indexes the search pipeline depends on: one vector collection per
enabled entry in the domain schema, the plan cache's own collection,
and the filterable-field indexes on the tool catalog. Vector
collections that already exist are left as they are.

Options:
  -config string
        Path to a JSON configuration file (defaults to environment variables)
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

	ctx := context.Background()
	schema := system.Registry.Current()

	existing := make(map[string]bool)
	if infos, err := system.VectorStore.ListCollections(ctx); err == nil {
		for _, info := range infos {
			existing[info.Name] = true
		}
	}

	for _, vc := range schema.VectorCollections {
		if !vc.Enabled {
			continue
		}
		fmt.Printf("ensuring vector collection %q (dimension=%d)... ", vc.Name, vc.Dimension)
		if existing[vc.Name] {
			fmt.Println("exists")
			continue
		}
		if err := system.VectorStore.CreateCollection(ctx, vc.Name, vc.Dimension, map[string]interface{}{
			"description": vc.Description,
		}); err != nil {
			fmt.Println("failed")
			return fmt.Errorf("failed to create vector collection %q: %w", vc.Name, err)
		}
		fmt.Println("ok")
	}

	fmt.Printf("ensuring plan cache collection %q (dimension=%d)... ", cache.PlansCollectionName, schema.EmbeddingDimension)
	if existing[cache.PlansCollectionName] {
		fmt.Println("exists")
	} else if err := system.VectorStore.CreateCollection(ctx, cache.PlansCollectionName, schema.EmbeddingDimension, map[string]interface{}{
		"description": "cached (query, intent, plan) triples",
	}); err != nil {
		fmt.Println("failed")
		return fmt.Errorf("failed to create plan cache collection: %w", err)
	} else {
		fmt.Println("ok")
	}

	fmt.Printf("ensuring structured indexes on %q... ", schema.StructuredDatabase.Collection)
	if err := system.DocStore.EnsureIndexes(ctx, schema.StructuredDatabase.Collection, schema.StructuredDatabase.FilterableFields); err != nil {
		fmt.Println("failed")
		return fmt.Errorf("failed to ensure structured indexes: %w", err)
	}
	fmt.Println("ok")

	fmt.Println("\nbootstrap complete")
	return nil
}
