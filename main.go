package main

import (
	"os"

	"github.com/natejswenson/traefik-local-cli/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
