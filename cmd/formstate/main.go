package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goliatone/go-formstate/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "formstate:", err)
		os.Exit(1)
	}
}
