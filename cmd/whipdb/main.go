// Command whipdb is the CLI entry point over a whipdb.Database handle:
// load, lookup, shell, perftest, serve.
//
// Grounded on the teacher's cmd/iporg-build/main.go hand-rolled
// switch-on-os.Args[1] dispatcher; the subcommand set itself follows
// original_source/whip/cli.py.
package main

import (
	"fmt"
	"os"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "load":
		loadCmd()
	case "lookup":
		lookupCmd()
	case "shell":
		shellCmd()
	case "perftest":
		perftestCmd()
	case "serve":
		serveCmd()
	case "version":
		fmt.Printf("whipdb version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`whipdb - Temporally-versioned IP range lookup database

Usage:
  whipdb load [options] <file>...       Load one or more snapshot files
  whipdb lookup [options] <ip>...       Look up one or more IP addresses
  whipdb shell [options]                Interactive lookup prompt
  whipdb perftest [options]             Run a lookup performance test
  whipdb serve [options]                Serve the HTTP lookup API
  whipdb version                        Show version
  whipdb help                           Show this help

Common Options:
  --db string           Path to the database directory (default: ./whipdb)

Load:
  whipdb load --db=./data/whipdb snapshot.jsonl snapshot2.jsonl.gz

Lookup:
  whipdb lookup --db=./data/whipdb --datetime=2020-06-01T00:00:00 8.8.8.8
  whipdb lookup --db=./data/whipdb --datetime=all 8.8.8.8

Serve:
  whipdb serve --db=./data/whipdb --host=0.0.0.0 --port=5555`)
}
