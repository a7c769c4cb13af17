// Package main provides the entry point for the histomorph command line.
package main

import "histo-analyzer/internal/cli"

func main() {
	cli.Execute()
}
