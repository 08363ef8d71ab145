package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/ethanbaker/voice-assistant/pkg/sdk"
	"github.com/ethanbaker/voice-assistant/pkg/utils"
)

func main() {
	// Load global config
	cfg := utils.NewConfigFromEnv(utils.EnvFile())

	baseURL := cfg.GetWithDefault("API_BASE_URL", "http://localhost:"+cfg.GetWithDefault("API_PORT", "8080"))
	client := sdk.NewClient(baseURL, cfg.Get("API_KEY"))

	ctx := context.Background()

	// One-shot mode: every argument is a recording to send
	if len(os.Args) > 1 {
		for _, path := range os.Args[1:] {
			if err := ask(ctx, client, path); err != nil {
				log.Fatalf("[COMMANDLINE]: %v", err)
			}
		}
		return
	}

	if err := startInteractiveSession(ctx, client); err != nil {
		log.Fatalf("Failed to start interactive session: %v", err)
	}
}

// startInteractiveSession reads recording paths and commands from stdin
func startInteractiveSession(ctx context.Context, client *sdk.Client) error {
	health, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("backend is not ready: %w", err)
	}
	fmt.Printf("Voice assistant ready (%d checks passed).\n", len(health.Checks))
	fmt.Println("Enter a path to an audio file, 'turns [n]' to list recent turns, or 'exit' to quit.")

	// Create scanner for reading user input
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("\n> ")

		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())

		switch {
		case input == "exit":
			return scanner.Err()
		case input == "":
			continue
		case input == "turns" || strings.HasPrefix(input, "turns "):
			if err := listTurns(ctx, client, strings.TrimSpace(strings.TrimPrefix(input, "turns"))); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		default:
			if err := ask(ctx, client, input); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	return nil
}

// ask uploads one recording and prints both sides of the turn
func ask(ctx context.Context, client *sdk.Client, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	res, err := client.Ask(ctx, path, f)
	if err != nil {
		return err
	}

	fmt.Printf("You: %s\n", res.UserText)
	fmt.Printf("Assistant: %s\n", res.AssistantText)

	switch {
	case res.AudioURL != "":
		fmt.Printf("Audio: %s\n", res.AudioURL)
	case res.SynthesisError != nil:
		fmt.Printf("Audio unavailable: %s\n", res.SynthesisError.Message)
	}

	return nil
}

func listTurns(ctx context.Context, client *sdk.Client, arg string) error {
	limit := 0
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid turn count %q", arg)
		}
		limit = n
	}

	turns, err := client.Turns(ctx, limit)
	if err != nil {
		return err
	}

	for _, turn := range turns {
		marker := ""
		if turn.Degraded {
			marker = " (no audio)"
		}
		fmt.Printf("[%s] %s\n  You: %s\n  Assistant: %s%s\n", turn.CreatedAt.Format("2006-01-02 15:04:05"), turn.SessionID, turn.UserText, turn.AssistantText, marker)
	}

	return nil
}
