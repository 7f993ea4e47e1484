// Package main provides the CLI entrypoint for schema-engine.
//
// schema-engine checks dynamic record schemas, validates and evaluates
// records against them, and plans and runs migrations between schema
// versions:
//   - check, validate, evaluate, sources work on schema files or stored schemas
//   - plan suggests field mappings that humans review and lock via YAML
//   - migrate brings records to a newer schema version
//   - serve exposes the same operations over HTTP
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
