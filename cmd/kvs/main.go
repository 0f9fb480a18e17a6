package main

import (
	"os"

	"github.com/0xRadioAc7iv/go-kvlog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
