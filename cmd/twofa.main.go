package main

import (
	"log"

	"twofa-service/internal/config"
	"twofa-service/internal/server"
)

func main() {
	cfg := config.Load()

	srv := server.NewServer(cfg)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
