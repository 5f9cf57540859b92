package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/josephbrant/regdossier/internal/dossier"
	"github.com/josephbrant/regdossier/internal/evidence"
	"github.com/josephbrant/regdossier/internal/inference"
	"github.com/josephbrant/regdossier/internal/reconcile"
	"github.com/josephbrant/regdossier/internal/telemetry"
)

func main() {
	var (
		dbPath       = flag.String("db", "./regdossier.db", "Path to the dossier SQLite database")
		deviceCode   = flag.String("device", "", "Device code to reconcile")
		period       = flag.String("period", "", "Reporting period, e.g. 2026-H1")
		evidencePath = flag.String("evidence", "", "Path to a JSON array of extracted evidence items")
		overwrite    = flag.Bool("overwrite", false, "Let incoming evidence replace populated fields")
		noInference  = flag.Bool("no-inference", false, "Skip the LLM gap-filling call")
		jsonOutput   = flag.String("json-output", "", "Optional path to write the run result JSON (defaults to stdout)")
	)
	flag.Parse()

	if *deviceCode == "" {
		log.Fatal("missing required -device")
	}
	if *evidencePath == "" {
		log.Fatal("missing required -evidence")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, "regdossier-reconcile")
	if err != nil {
		log.Fatalf("telemetry setup: %v", err)
	}
	defer shutdown(context.Background())

	raw, err := os.ReadFile(*evidencePath)
	if err != nil {
		log.Fatalf("read evidence: %v", err)
	}
	var items []evidence.Raw
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Fatalf("decode evidence JSON: %v", err)
	}

	repo, err := dossier.NewSQLiteRepository(*dbPath)
	if err != nil {
		log.Fatalf("open repository: %v", err)
	}
	defer repo.Close()

	recOpts := []reconcile.Option{}
	opts := reconcile.DefaultOptions()
	opts.Overwrite = *overwrite
	if *noInference {
		opts.UseLLMInference = false
	} else {
		caller, err := inference.NewAnthropicCallerFromEnv()
		if err != nil {
			log.Printf("inference unavailable: %v (continuing with deterministic merges only)", err)
			opts.UseLLMInference = false
		} else {
			recOpts = append(recOpts, reconcile.WithInferrer(inference.NewClient(caller)))
		}
	}

	r := reconcile.New(repo, recOpts...)
	result, err := r.AutoPopulate(ctx, *deviceCode, *period, items, opts)
	if err != nil {
		log.Fatalf("reconcile: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("encode result: %v", err)
	}
	if *jsonOutput == "" {
		fmt.Println(string(out))
	} else if err := os.WriteFile(*jsonOutput, out, 0o644); err != nil {
		log.Fatalf("write result: %v", err)
	}

	log.Printf("reconciled %s: %d evidence items, completeness %d/100, %d warnings",
		*deviceCode, result.EvidenceItemsProcessed, result.CompletenessScore, len(result.Warnings))
}
