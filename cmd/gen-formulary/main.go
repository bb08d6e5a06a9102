// Command gen-formulary writes the embedded formulary tables as override
// documents, one per locale, as a starting point for local edits.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/triage/pkg/formulary"
)

func main() {
	targetDir := "examples/formulary-overrides"
	if len(os.Args) > 1 {
		targetDir = os.Args[1]
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		fail(err)
	}

	set, err := formulary.Default()
	if err != nil {
		fail(err)
	}

	fmt.Printf("Generating formulary overrides in: %s\n", targetDir)
	for _, locale := range set.Locales() {
		table, err := set.Table(locale)
		if err != nil {
			fail(err)
		}
		doc, err := table.Document()
		if err != nil {
			fail(err)
		}
		path := filepath.Join(targetDir, strings.ToLower(locale)+".md")
		if err := os.WriteFile(path, doc, 0o644); err != nil {
			fail(err)
		}
		fmt.Println("  wrote", path)
	}
	fmt.Println("Done. Set formulary.dir to", targetDir)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "gen-formulary:", err)
	os.Exit(1)
}
