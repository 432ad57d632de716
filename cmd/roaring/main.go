// Package main is the entry point for the roaring CLI.
package main

import "github.com/davidfant/roaring-api/internal/cli"

func main() {
	cli.Execute()
}
