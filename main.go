package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"dwcli/cmd"
	"dwcli/config"
)

func main() {
	cnf, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cmd.Execute(cnf); err != nil {
		log.Error().Err(err).Msg("Failed to execute command")
		os.Exit(1)
	}
}
