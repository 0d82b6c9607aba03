package main

import (
	"log"
	"os"

	"github.com/blue-horizon/syncd/pkg/api/events"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
)

func main() {
	// Load dotenv
	godotenv.Load()

	// Initialise Sentry
	sentry.Init(sentry.ClientOptions{
		Dsn: os.Getenv("EVENTS_SENTRY_DSN"),
	})

	// Get expose address
	exposeAddr := os.Getenv("EVENTS_ADDRESS")
	if exposeAddr == "" {
		exposeAddr = ":3001"
	}

	// Create & run server
	server := events.NewServer()
	err := server.Run(exposeAddr)
	if err != nil {
		log.Fatalln(err)
	}
}
