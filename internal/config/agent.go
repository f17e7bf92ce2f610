package config

import (
	"errors"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const (
	EnvAgentProviderName = "WARDEN_AGENT_PROVIDER_NAME"
	EnvAgentBaseURL      = "WARDEN_AGENT_BASE_URL"
	EnvAgentToken        = "WARDEN_AGENT_TOKEN"
	EnvAgentDeployment   = "WARDEN_AGENT_DEPLOYMENT"
	EnvAgentAPIVersion   = "WARDEN_AGENT_API_VERSION"
	EnvAgentAuthType     = "WARDEN_AGENT_AUTH_TYPE"
	EnvAgentModelName    = "WARDEN_AGENT_MODEL_NAME"
)

// providerOptions maps environment variables onto provider option keys.
var providerOptions = map[string]string{
	EnvAgentToken:      "token",
	EnvAgentDeployment: "deployment",
	EnvAgentAPIVersion: "api_version",
	EnvAgentAuthType:   "auth_type",
}

// FinalizeAgent resolves the agent used by the moderation agent analyzer:
// go-agents defaults under the configured values, then WARDEN_AGENT_*
// overrides, then validation.
func FinalizeAgent(c *gaconfig.AgentConfig) error {
	defaults := gaconfig.DefaultAgentConfig()
	defaults.Merge(c)
	*c = defaults

	if c.Provider == nil {
		c.Provider = &gaconfig.ProviderConfig{}
	}
	if c.Provider.Options == nil {
		c.Provider.Options = make(map[string]any)
	}
	if c.Model == nil {
		c.Model = &gaconfig.ModelConfig{}
	}

	envString(EnvAgentProviderName, &c.Provider.Name)
	envString(EnvAgentBaseURL, &c.Provider.BaseURL)
	envString(EnvAgentModelName, &c.Model.Name)
	for env, key := range providerOptions {
		if v := os.Getenv(env); v != "" {
			c.Provider.Options[key] = v
		}
	}

	return validateAgent(c)
}

func validateAgent(c *gaconfig.AgentConfig) error {
	switch {
	case c.Name == "":
		return errors.New("name required")
	case c.Provider.Name == "":
		return errors.New("provider name required")
	}

	// azure deployments are addressed by endpoint and deployment name, not model
	if c.Provider.Name == "azure" {
		if c.Provider.BaseURL == "" {
			return errors.New("azure provider requires base_url")
		}
		if _, ok := c.Provider.Options["deployment"]; !ok {
			return errors.New("azure provider requires a deployment option")
		}
	}
	return nil
}
