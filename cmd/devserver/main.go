// Command devserver runs the scripted development server. Point the client
// at it to exercise full game flows from a recorded event script without a
// real 42 server.
package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"fortytwo/internal/protocol"
	"fortytwo/internal/server"
)

func main() {
	godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	addr := envStr("DEVSERVER_ADDR", ":5001")
	secret := envStr("JWT_SECRET", "dev-only-secret")

	var script []protocol.Envelope
	if path := os.Getenv("SCRIPT_FILE"); path != "" {
		var err error
		script, err = server.LoadScript(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("script load failed")
		}
		log.Info().Int("events", len(script)).Str("path", path).Msg("script loaded")
	}

	srv := server.New(server.Config{
		JWTSecret: secret,
		Script:    script,
		Logger:    log,
	})

	log.Info().Str("addr", addr).Msg("devserver listening")
	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		log.Fatal().Err(err).Msg("devserver stopped")
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
