package main

import (
	"os"

	"github.com/satishbabariya/go-dao/cmd/daocore/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
