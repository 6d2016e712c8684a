package main

import (
	"os"

	"dev/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
