package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethanbaker/voice-assistant/pkg/utils"
)

func main() {
	// Load global config
	cfg := utils.NewConfigFromEnv(utils.EnvFile())

	// Wait for interrupt signal to gracefully shut down the app
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Println("[LISTEN]: Starting voice client...")

	assistant, err := NewVoiceAssistant(cfg)
	if err != nil {
		log.Fatalf("[LISTEN]: failed to create voice client: %v", err)
	}

	if err := assistant.Start(ctx); err != nil {
		log.Fatalf("[LISTEN]: failed to start voice client: %v", err)
	}

	log.Println("[LISTEN]: Voice client is running. Press Ctrl+C to exit.")
	<-ctx.Done()

	if err := assistant.Stop(); err != nil {
		log.Printf("error during voice client shutdown: %v", err)
	}

	log.Println("[LISTEN]: Voice client stopped")
}
