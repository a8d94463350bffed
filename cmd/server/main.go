// Package main is the entry point for the articles API.
//
// COMMANDS:
//
//	server            same as "server serve"
//	server serve      run the HTTP API
//	server routes     print the route table as Markdown
//	server token      mint a token for local testing
//
// Configuration comes from the environment and an optional .env file; see
// internal/config.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
