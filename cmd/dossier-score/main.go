package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/josephbrant/regdossier/internal/completeness"
	"github.com/josephbrant/regdossier/internal/dossier"
)

func main() {
	var (
		dbPath     = flag.String("db", "./regdossier.db", "Path to the dossier SQLite database")
		deviceCode = flag.String("device", "", "Device code to score")
	)
	flag.Parse()

	if *deviceCode == "" {
		log.Fatal("missing required -device")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	repo, err := dossier.NewSQLiteRepository(*dbPath)
	if err != nil {
		log.Fatalf("open repository: %v", err)
	}
	defer repo.Close()

	d, err := repo.Find(ctx, *deviceCode)
	if errors.Is(err, dossier.ErrNotFound) {
		log.Fatalf("no dossier for device %s", *deviceCode)
	}
	if err != nil {
		log.Fatalf("load dossier: %v", err)
	}

	breakdown := completeness.Score(d, time.Now().UTC())
	out, err := json.MarshalIndent(breakdown, "", "  ")
	if err != nil {
		log.Fatalf("encode breakdown: %v", err)
	}
	fmt.Println(string(out))
}
