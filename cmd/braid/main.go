package main

import (
	"github.com/oneconcern/braid/cmd/braid/cmd"
)

func main() {
	cmd.Execute()
}
