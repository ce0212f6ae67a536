package main

import (
	"os"

	"github.com/MrEthical07/goSession/cmd/sessionctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
