// Command flatten batch-exports annotated documents: for every document
// given on the command line it loads the annotation sidecar next to it
// and writes a flattened copy.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"doc-annotator/internal/annot"
	"doc-annotator/internal/export"
	"doc-annotator/internal/log"
)

const sidecarSuffix = ".annotations.json"

func main() {
	dpi := flag.Float64("dpi", 144, "raster DPI for annotation overlays")
	workers := flag.Int("workers", 0, "parallel workers (0 = number of CPUs)")
	suffix := flag.String("suffix", "-annotated", "output filename suffix")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: flatten [-dpi 144] [-workers N] <document>...")
		os.Exit(1)
	}
	if *verbose {
		log.SetLevel(log.LevelDebug)
	} else {
		log.SetLevel(log.LevelWarn)
	}

	jobs := make([]export.Job, 0, flag.NArg())
	for _, path := range flag.Args() {
		job, err := buildJob(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			os.Exit(1)
		}
		if job.Store.Len() == 0 {
			fmt.Printf("%s: no annotations, skipping\n", path)
			continue
		}
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 {
		return
	}

	flattener := export.NewFlattener(*dpi)
	results, err := flattener.FlattenAll(context.Background(), jobs, *workers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flatten: %v\n", err)
		os.Exit(1)
	}

	for _, job := range jobs {
		res := results[job.Name]
		if res == nil {
			continue
		}
		out := outputPath(job.Name, *suffix)
		if err := os.WriteFile(out, res.Bytes, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", out, err)
			os.Exit(1)
		}
		fmt.Printf("%s: %d annotated pages -> %s\n", job.Name, res.Pages, out)
	}
}

func buildJob(path string) (export.Job, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return export.Job{}, err
	}

	store := annot.NewStore()
	sidecar, err := os.ReadFile(path + sidecarSuffix)
	if err == nil {
		if err := store.DecodeSidecar(sidecar); err != nil {
			return export.Job{}, fmt.Errorf("sidecar: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return export.Job{}, err
	}

	return export.Job{Name: path, Doc: doc, Store: store}, nil
}

func outputPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ".pdf"
}
