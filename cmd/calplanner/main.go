package main

import (
	"context"
	"fmt"
	"os"
	"time"
)

// version will be set by goreleaser during build
var version = "dev"

func main() {
	root, a := newRootCmd(version)
	err := root.Execute()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if closeErr := a.close(ctx); closeErr != nil {
		fmt.Fprintf(os.Stderr, "failed to flush telemetry: %v\n", closeErr)
	}
	if err != nil {
		cancel()
		os.Exit(1)
	}
}
