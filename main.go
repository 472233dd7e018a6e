// Package main is the entry point for the subsample CLI.
package main

import "subsample.dev/pkg/subsample/cmd"

func main() {
	cmd.Execute()
}
