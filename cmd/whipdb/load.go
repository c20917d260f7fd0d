package main

import (
	"compress/gzip"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/wbolster/whipdb/pkg/loader"
	"github.com/wbolster/whipdb/pkg/merger"
	"github.com/wbolster/whipdb/pkg/model"
	"github.com/wbolster/whipdb/pkg/reader"
	"github.com/wbolster/whipdb/pkg/whipdb"
)

func loadCmd() {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	dbPath := fs.String("db", "./whipdb", "Path to the database directory")
	fs.Parse(os.Args[2:])

	inputs := fs.Args()
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "ERROR: at least one input file is required")
		fmt.Fprintln(os.Stderr, "\nUsage: whipdb load [options] <file>...")
		os.Exit(1)
	}

	db, err := whipdb.Open(*dbPath, 0)
	if err != nil {
		log.Fatalf("ERROR: failed to open database: %v", err)
	}
	defer db.Close()

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	readers := make([]merger.Reader[model.Infoset], 0, len(inputs))
	for _, path := range inputs {
		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("ERROR: opening %q: %v", path, err)
		}
		closers = append(closers, f)

		var r io.Reader = f
		if isGzip(path) {
			gz, err := gzip.NewReader(f)
			if err != nil {
				log.Fatalf("ERROR: opening gzip stream %q: %v", path, err)
			}
			closers = append(closers, gz)
			r = gz
		}

		readers = append(readers, reader.New(r))
	}

	log.Printf("INFO: importing %d snapshot file(s)", len(inputs))

	progress := func(stats loader.Stats) {
		log.Printf("INFO: progress: %d written, %d reused", stats.RangesWritten, stats.RangesReused)
	}

	stats, err := db.Load(context.Background(), readers, progress)
	if err != nil {
		log.Fatalf("ERROR: load failed: %v", err)
	}

	log.Printf("INFO: load complete: %d ranges written, %d ranges reused", stats.RangesWritten, stats.RangesReused)
}

func isGzip(path string) bool {
	return len(path) > 3 && path[len(path)-3:] == ".gz"
}
