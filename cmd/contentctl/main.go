package main

import (
	"os"

	"github.com/content-collections/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
