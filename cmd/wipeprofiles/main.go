// Command wipeprofiles deletes every stored player profile in fixed-size
// batches. Exits 0 on success, non-zero on the first failure, printing a
// summary either way.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tankarena/server/internal/config"
	"github.com/tankarena/server/internal/profile"
)

const wipeBatchSize = 100

func main() {
	dbPath := flag.String("db", "", "path to the profile database (defaults to the server's configured path)")
	flag.Parse()

	path := *dbPath
	if path == "" {
		path = config.DefaultPersistence().ProfileDBPath
	}

	store, err := profile.Open(path, time.Hour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wipeprofiles: open %s: %v\n", path, err)
		os.Exit(1)
	}
	defer store.Close()

	removed, err := store.WipeAll(wipeBatchSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wipeprofiles: wiped %d profiles before failing: %v\n", removed, err)
		os.Exit(1)
	}

	fmt.Printf("wipeprofiles: removed %d profiles from %s\n", removed, path)
	os.Exit(0)
}
