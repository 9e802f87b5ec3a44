package main

import (
	"instancectl/cmd"
	"instancectl/internal/logging"
)

func main() {
	if err := logging.InitLogger(); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	// Sync errors on stderr are expected on Linux and not worth reporting
	defer func() { _ = logging.Sync() }()

	cmd.Execute()
}
