package main

import (
	"os"

	"github.com/adalundhe/coinbandit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
