// floodctl queries the flood-monitoring API from the command line and prints
// the parsed results as JSON.
package main

import (
	"fmt"
	"os"
)

func main() {
	app := buildApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "floodctl:", err)
		os.Exit(1)
	}
}
