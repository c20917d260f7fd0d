package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/wbolster/whipdb/pkg/whipdb"
)

func shellCmd() {
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	dbPath := fs.String("db", "./whipdb", "Path to the database directory")
	dt := fs.String("datetime", "", "Timestamp to look up (absent: latest, \"all\": full history)")
	fs.StringVar(dt, "dt", "", "Alias for --datetime")
	fs.Parse(os.Args[2:])

	db, err := whipdb.Open(*dbPath, 0)
	if err != nil {
		log.Fatalf("ERROR: failed to open database: %v", err)
	}
	defer db.Close()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("IP: ")
		if !scanner.Scan() {
			break
		}
		ip := strings.TrimSpace(scanner.Text())
		if ip == "" {
			continue
		}
		lookupAndPrint(db, ip, *dt)
	}
}
