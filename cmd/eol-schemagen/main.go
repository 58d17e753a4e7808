// Command eol-schemagen generates Go constants for the messages, signals and
// value choices of a bus schema.
//
// Usage:
//
//	eol-schemagen -schema boards/relay.schema.yaml -package relay -output internal/relay/schema_gen.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/tools/imports"

	"github.com/eol-bench/eol-go/pkg/codec"
)

func main() {
	schemaPath := flag.String("schema", "", "Path to the schema YAML")
	pkg := flag.String("package", "", "Go package name of the generated file")
	output := flag.String("output", "", "Output path of the generated Go file")
	flag.Parse()

	if *schemaPath == "" || *pkg == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "Usage: eol-schemagen -schema <path> -package <name> -output <file.go>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(*schemaPath, *pkg, *output); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(schemaPath, pkg, output string) error {
	schema, err := codec.LoadSchema(schemaPath)
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}

	code, err := Generate(schema, pkg, filepath.Base(schemaPath))
	if err != nil {
		return fmt.Errorf("generating %s: %w", pkg, err)
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}
	if err := writeFormatted(output, code); err != nil {
		return err
	}
	fmt.Printf("  generated %s (%d messages)\n", output, len(schema.Messages))
	return nil
}

func writeFormatted(path string, code string) error {
	formatted, err := imports.Process(path, []byte(code), nil)
	if err != nil {
		// Keep the raw output for debugging the generator.
		_ = os.WriteFile(path+".broken", []byte(code), 0o644)
		return fmt.Errorf("goimports %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, formatted, 0o644)
}
