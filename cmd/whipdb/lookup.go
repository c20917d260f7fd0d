package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/wbolster/whipdb/pkg/lookup"
	"github.com/wbolster/whipdb/pkg/whipdb"
)

func lookupCmd() {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	dbPath := fs.String("db", "./whipdb", "Path to the database directory")
	dt := fs.String("datetime", "", "Timestamp to look up (absent: latest, \"all\": full history)")
	fs.StringVar(dt, "dt", "", "Alias for --datetime")
	fs.Parse(os.Args[2:])

	ips := fs.Args()
	if len(ips) == 0 {
		fmt.Fprintln(os.Stderr, "ERROR: at least one IP address is required")
		fmt.Fprintln(os.Stderr, "\nUsage: whipdb lookup [options] <ip>...")
		os.Exit(1)
	}

	db, err := whipdb.Open(*dbPath, 0)
	if err != nil {
		log.Fatalf("ERROR: failed to open database: %v", err)
	}
	defer db.Close()

	for _, ip := range ips {
		lookupAndPrint(db, ip, *dt)
	}
}

// lookupAndPrint mirrors original_source/whip/cli.py's lookup_and_print:
// pretty-printed JSON on a hit, a plain message on a miss.
func lookupAndPrint(db *whipdb.Database, ip, dt string) {
	res, ok, err := db.Lookup(ip, dt)
	if err != nil {
		fmt.Printf("%s: ERROR: %v\n", ip, err)
		return
	}
	if !ok {
		fmt.Println("No hit found")
		return
	}

	out, err := renderResult(res)
	if err != nil {
		fmt.Printf("%s: ERROR: %v\n", ip, err)
		return
	}
	fmt.Println(out)
}

func renderResult(res lookup.Result) (string, error) {
	if res.History != nil {
		raws := make([]json.RawMessage, len(res.History))
		for i, blob := range res.History {
			raws[i] = json.RawMessage(blob)
		}
		data, err := json.MarshalIndent(map[string][]json.RawMessage{"history": raws}, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, res.Blob, "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}
