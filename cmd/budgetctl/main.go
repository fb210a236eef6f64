// Package main is the entry point for budgetctl.
package main

import (
	"os"

	"smartbudget/cmd/budgetctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
