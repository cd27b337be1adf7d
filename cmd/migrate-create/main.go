package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var namePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Scaffolds a timestamped up/down SQL migration pair under db/migrations.
func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <migration_name>", filepath.Base(os.Args[0]))
	}
	name := os.Args[1]
	if !namePattern.MatchString(name) {
		log.Fatal("migration name must match [a-z0-9_]+")
	}

	dir := filepath.Join("db", "migrations")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("create migrations dir: %v", err)
	}

	stamp := time.Now().UTC().Format("20060102150405")
	for _, direction := range []string{"up", "down"} {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s.sql", stamp, name, direction))
		if _, err := os.Stat(path); err == nil {
			log.Fatalf("already exists: %s", path)
		}
		header := fmt.Sprintf("-- %s %s\n", name, direction)
		if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
			log.Fatalf("write %s: %v", path, err)
		}
		log.Printf("created %s", path)
	}
}
