// Command formctx lists, validates and interactively fills multi-context
// forms from the terminal.
package main

import "os"

// version can be set during build with -ldflags.
var version = "dev"

func main() {
	os.Exit(newApp(os.Stdout, os.Stderr).execute(os.Args[1:]))
}
