// Command schema-gen writes the JSON Schemas for the config file and the
// release manifest to schema/.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/smykla-skalski/svm/internal/schema"
)

const filePerms = 0o644

func main() {
	outDir := "schema"
	if len(os.Args) > 1 {
		outDir = os.Args[1]
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil { //nolint:gosec // dev tool, outDir from CLI arg
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	files := schema.Files()
	names := make([]string, 0, len(files))

	for name := range files {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		data, err := schema.MarshalJSON(files[name], true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", name, err)
			os.Exit(1)
		}

		outPath := filepath.Clean(filepath.Join(outDir, name))

		//nolint:gosec // dev tool, outDir from CLI arg
		if err := os.WriteFile(outPath, data, filePerms); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(outPath)
	}
}
