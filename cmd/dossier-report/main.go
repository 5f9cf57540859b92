package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/josephbrant/regdossier/internal/completeness"
	"github.com/josephbrant/regdossier/internal/dossier"
	"github.com/josephbrant/regdossier/internal/dossierctx"
	"github.com/josephbrant/regdossier/internal/report"
)

func main() {
	var (
		dbPath     = flag.String("db", "./regdossier.db", "Path to the dossier SQLite database")
		deviceCode = flag.String("device", "", "Device code to report on")
		period     = flag.String("period", "", "Reporting period, e.g. 2026-H1")
		outputPath = flag.String("output", "", "Path to write the markdown report (defaults to stdout)")
		htmlPath   = flag.String("html-output", "", "Optional path to write the HTML report")
		pdfPath    = flag.String("pdf-output", "", "Optional path to write the PDF report (requires Chromium)")
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
		// The context builder covers the no-dossier case; the report then
		// documents the synthetic assumptions instead of failing.
		log.Printf("no dossier for %s; reporting on the synthesized first-report context", *deviceCode)
		d = nil
	} else if err != nil {
		log.Fatalf("load dossier: %v", err)
	}

	now := time.Now().UTC()
	scored := d
	if scored == nil {
		scored = &dossier.Dossier{DeviceCode: *deviceCode}
	}
	breakdown := completeness.Score(scored, now)
	dctx := dossierctx.Build(d, *period)

	md := report.BuildMarkdown(*deviceCode, *period, breakdown, dctx, now)
	if *outputPath == "" {
		fmt.Print(md)
	} else if err := os.WriteFile(*outputPath, []byte(md), 0o644); err != nil {
		log.Fatalf("write markdown: %v", err)
	}

	if *htmlPath != "" {
		html, err := report.RenderHTML(md)
		if err != nil {
			log.Fatalf("render html: %v", err)
		}
		if err := os.WriteFile(*htmlPath, []byte(html), 0o644); err != nil {
			log.Fatalf("write html: %v", err)
		}
	}

	if *pdfPath != "" {
		pdf, err := report.NewChromiumPDFRenderer().Render(ctx, md)
		if err != nil {
			log.Fatalf("render pdf: %v", err)
		}
		if err := os.WriteFile(*pdfPath, pdf, 0o644); err != nil {
			log.Fatalf("write pdf: %v", err)
		}
	}
}
