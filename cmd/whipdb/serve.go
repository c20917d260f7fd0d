package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/wbolster/whipdb/internal/httpapi"
	"github.com/wbolster/whipdb/pkg/whipdb"
)

func serveCmd() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dbPath := fs.String("db", "./whipdb", "Path to the database directory")
	host := fs.String("host", "0.0.0.0", "Host to bind")
	port := fs.Int("port", 5555, "Port to bind")
	fs.Parse(os.Args[2:])

	db, err := whipdb.Open(*dbPath, 0)
	if err != nil {
		log.Fatalf("ERROR: failed to open database: %v", err)
	}
	defer db.Close()

	addr := fmt.Sprintf("%s:%d", *host, *port)
	srv := httpapi.NewServer(db)

	log.Printf("INFO: starting whipdb HTTP API on %s", addr)
	log.Printf("INFO: database: %s", *dbPath)
	log.Printf("INFO: endpoint: GET /ip/<address>?datetime=<t>")
	log.Fatal(http.ListenAndServe(addr, srv.Handler()))
}
