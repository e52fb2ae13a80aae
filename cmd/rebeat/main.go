package main

import (
	"os"

	"github.com/slabtone/rebeat/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
