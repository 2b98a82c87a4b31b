package main

import (
	"fmt"
	"os"

	"github.com/kode4food/courier/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.NewRoot(version).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "courier:", err)
		os.Exit(1)
	}
}
