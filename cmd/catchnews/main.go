package main

import (
	"context"
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/yuukiLike/cc-catch-news/internal/cli"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "catchnews:", err)
		os.Exit(1)
	}
}
