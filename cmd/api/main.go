package main

import (
	"os"

	"github.com/schoolguidance/tracker/internal/pkg/logger"
	"github.com/schoolguidance/tracker/internal/server"
)

// @title Guidance Tracking API
// @version 1.0
// @description Student discipline reports, violation tallies and counseling for a secondary school guidance office.
// @termsOfService http://swagger.io/terms/

// @contact.name Guidance Office IT
// @contact.email it-support@guidance.local

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	srv, err := server.NewServer()
	if err != nil {
		// Setup functions log the details
		logger.Error().Err(err).Msg("Failed to initialize server")
		logger.Flush()
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
