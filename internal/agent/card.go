// Package agent builds the A2A agent card published for discovery at
// /.well-known/agent.json.
package agent

import (
	"fmt"

	"github.com/cartwheel-tools/kroger-mcp/internal/config"
)

// Capabilities describes the features supported by the agent.
type Capabilities struct {
	Streaming              bool `json:"streaming,omitempty"`
	PushNotifications      bool `json:"pushNotifications,omitempty"`
	StateTransitionHistory bool `json:"stateTransitionHistory,omitempty"`
}

// Skill describes one capability of the agent.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

// Card is the agent description served for discovery.
type Card struct {
	Name               string       `json:"name"`
	Description        string       `json:"description,omitempty"`
	URL                string       `json:"url"`
	Version            string       `json:"version"`
	Capabilities       Capabilities `json:"capabilities"`
	DefaultInputModes  []string     `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string     `json:"defaultOutputModes,omitempty"`
	Skills             []Skill      `json:"skills"`
}

// NewCard builds the card from server config and the registered skills.
func NewCard(cfg *config.Config, skills []Skill) *Card {
	return &Card{
		Name:        cfg.Server.Name,
		Description: "An agent that answers questions about Kroger store locations and products",
		URL:         fmt.Sprintf("http://%s:%d/", cfg.Server.Host, cfg.Server.Port),
		Version:     cfg.Server.Version,
		Capabilities: Capabilities{
			Streaming: cfg.Server.Mode == config.ServerModeSSE,
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills:             skills,
	}
}
