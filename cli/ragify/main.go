package main

import (
	"os"

	ragifycmder "github.com/papercomputeco/ragify/cmd/ragify"
)

func main() {
	cmd := ragifycmder.NewRagifyCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
