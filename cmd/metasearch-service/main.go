package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/ndsh/metasearch/metasearchservice"
)

func main() {
	if err := metasearchservice.Run(); err != nil {
		log.Error().Err(err).Msg("metasearch-service exited with error")
		os.Exit(1)
	}
}
