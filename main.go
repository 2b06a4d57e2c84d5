package main

import (
	"os"

	"github.com/kestrelhq/kestrel/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
