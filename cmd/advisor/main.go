package main

import (
	"fmt"
	"os"

	"github.com/limaJavier/studyplan/internal/cli"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Catalogue, database and metrics are wired from the configuration
	// before the first command runs
	app := &cli.App{}
	defer app.Close()

	return cli.NewRootCmd(app).Execute()
}
