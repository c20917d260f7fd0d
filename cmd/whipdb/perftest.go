package main

import (
	"bufio"
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/wbolster/whipdb/pkg/whipdb"
)

func perftestCmd() {
	fs := flag.NewFlagSet("perftest", flag.ExitOnError)
	dbPath := fs.String("db", "./whipdb", "Path to the database directory")
	iterations := fs.Int("iterations", 100*1000, "Number of iterations")
	fs.IntVar(iterations, "n", 100*1000, "Alias for --iterations")
	testSet := fs.String("test-set", "", "Path to a file of newline-separated IP addresses")
	dt := fs.String("datetime", "", "Timestamp to look up (absent: latest, \"all\": full history)")
	fs.StringVar(dt, "dt", "", "Alias for --datetime")
	fs.Parse(os.Args[2:])

	db, err := whipdb.Open(*dbPath, 0)
	if err != nil {
		log.Fatalf("ERROR: failed to open database: %v", err)
	}
	defer db.Close()

	var ips []string
	if *testSet != "" {
		f, err := os.Open(*testSet)
		if err != nil {
			log.Fatalf("ERROR: opening test set %q: %v", *testSet, err)
		}
		defer f.Close()
		log.Printf("INFO: using test set %q", *testSet)

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				ips = append(ips, line)
			}
		}
		if err := scanner.Err(); err != nil {
			log.Fatalf("ERROR: reading test set: %v", err)
		}
	} else {
		log.Printf("INFO: running %d iterations with random IPv4 addresses", *iterations)
		ips = randomIPv4s(*iterations)
	}

	start := time.Now()
	for _, ip := range ips {
		if _, _, err := db.Lookup(ip, *dt); err != nil {
			log.Fatalf("ERROR: lookup %q: %v", ip, err)
		}
	}
	elapsed := time.Since(start)

	n := len(ips)
	fmt.Printf("%d lookups in %.2fs (%.2f req/s)\n", n, elapsed.Seconds(), float64(n)/elapsed.Seconds())
}

// randomIPv4s mirrors original_source/whip/cli.py's perftest: a sliding
// window over one block of random bytes rather than n independent
// 4-byte reads.
func randomIPv4s(n int) []string {
	buf := make([]byte, n+3)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("ERROR: generating random addresses: %v", err)
	}

	ips := make([]string, n)
	for i := 0; i < n; i++ {
		var b [4]byte
		copy(b[:], buf[i:i+4])
		ips[i] = netip.AddrFrom4(b).String()
	}
	return ips
}
