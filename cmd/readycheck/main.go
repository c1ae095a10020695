package main

import "os"

// exitCode is set by commands whose outcome must become the process exit
// status. It is applied only after Execute returns, so deferred cleanup in
// the command runs first.
var exitCode int

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}
