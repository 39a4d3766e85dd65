// Package vault loads broker and LLM credentials from HashiCorp Vault,
// falling back to the values already present in the config when Vault
// is disabled or a secret is missing.
package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"

	"equity-trading-bot/config"
)

// Credentials holds the secrets the bot needs at runtime.
type Credentials struct {
	BrokerToken string `json:"broker_token"`
	LLMAPIKey   string `json:"llm_api_key"`
}

// Client wraps the HashiCorp Vault client
type Client struct {
	client *api.Client
	config config.VaultConfig

	mu     sync.RWMutex
	cached *Credentials
}

// NewClient creates a new Vault client. With Vault disabled the client
// only serves whatever is stored in its local cache.
func NewClient(cfg config.VaultConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{config: cfg}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		tlsConfig := &api.TLSConfig{CACert: cfg.CACert}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{client: client, config: cfg}, nil
}

// LoadCredentials reads the bot credentials from Vault. Results are
// cached for the process lifetime.
func (c *Client) LoadCredentials(ctx context.Context) (*Credentials, error) {
	c.mu.RLock()
	if c.cached != nil {
		defer c.mu.RUnlock()
		return c.cached, nil
	}
	c.mu.RUnlock()

	if !c.config.Enabled {
		return nil, fmt.Errorf("vault is disabled")
	}

	path := fmt.Sprintf("%s/data/%s", c.config.MountPath, c.config.SecretPath)
	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("credentials not found at %s", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format at %s", path)
	}

	creds := &Credentials{
		BrokerToken: getString(data, "broker_token"),
		LLMAPIKey:   getString(data, "llm_api_key"),
	}

	c.mu.Lock()
	c.cached = creds
	c.mu.Unlock()
	return creds, nil
}

// StoreCredentials writes the bot credentials to Vault.
func (c *Client) StoreCredentials(ctx context.Context, creds Credentials) error {
	if !c.config.Enabled {
		c.mu.Lock()
		c.cached = &creds
		c.mu.Unlock()
		return nil
	}

	path := fmt.Sprintf("%s/data/%s", c.config.MountPath, c.config.SecretPath)
	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"broker_token": creds.BrokerToken,
			"llm_api_key":  creds.LLMAPIKey,
		},
	}

	if _, err := c.client.Logical().WriteWithContext(ctx, path, secretData); err != nil {
		return fmt.Errorf("failed to store credentials in vault: %w", err)
	}

	c.mu.Lock()
	c.cached = &creds
	c.mu.Unlock()
	return nil
}

// IsEnabled returns whether Vault is enabled
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// Health checks the Vault connection
func (c *Client) Health(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	health, err := c.client.Sys().Health()
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
