package voice

import (
	"log"

	"github.com/ethanbaker/api/pkg/api_key"
	"github.com/ethanbaker/voice-assistant/pkg/utils"
	"github.com/gin-gonic/gin"
)

// Register routes for the voice module
func RegisterRoutes(g *gin.RouterGroup, cfg *utils.Config, ctrl *Controller) {
	// Create base group for voice routes
	group := g.Group("/voice")

	// The API key is optional for a local deployment
	if validator, ok := makeApiKeyValidator(cfg); ok {
		group.Handlers = append(group.Handlers, api_key.APIKeyHeaderHandler(validator))
	} else {
		log.Println("[API-VOICE]: API_KEY not set, voice routes are unauthenticated")
	}

	group.POST("/ask", ctrl.Ask)                              // Run one voice turn
	group.GET("/turns", ctrl.ListTurns)                       // List recent turns
	group.GET("/transcripts/:role", ctrl.ListTranscripts)     // List committed transcripts of a role
	group.GET("/transcripts/:role/:base", ctrl.GetTranscript) // Get one transcript with metadata
}

// makeApiKeyValidator checks if the provided API key is valid
func makeApiKeyValidator(cfg *utils.Config) (func(key string) bool, bool) {
	apiKey := cfg.Get("API_KEY")
	if apiKey == "" {
		return nil, false
	}

	return func(key string) bool {
		return apiKey == key
	}, true
}
