package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Table  TableRules     `hcl:"table,block"`
}

// ServerSettings contains listener-level configuration.
type ServerSettings struct {
	Address    string `hcl:"address,optional"`
	Port       int    `hcl:"port,optional"`
	LogLevel   string `hcl:"log_level,optional"`
	MaxClients int    `hcl:"max_clients,optional"`
}

// TableRules defines the wager limits enforced at the message boundary.
// Both the ante and the Pair Plus side bet must fall inside [MinBet,
// MaxBet]; a Pair Plus of zero means the side bet was declined.
type TableRules struct {
	MinBet int `hcl:"min_bet,optional"`
	MaxBet int `hcl:"max_bet,optional"`
}

// DefaultConfig returns the house defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:    "localhost",
			Port:       8080,
			LogLevel:   "info",
			MaxClients: 8,
		},
		Table: TableRules{
			MinBet: 5,
			MaxBet: 25,
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to defaults
// when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Server.Address == "" {
		c.Server.Address = def.Server.Address
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = def.Server.LogLevel
	}
	if c.Server.MaxClients == 0 {
		c.Server.MaxClients = def.Server.MaxClients
	}
	if c.Table.MinBet == 0 {
		c.Table.MinBet = def.Table.MinBet
	}
	if c.Table.MaxBet == 0 {
		c.Table.MaxBet = def.Table.MaxBet
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.MaxClients < 1 {
		return fmt.Errorf("max_clients must be positive, got %d", c.Server.MaxClients)
	}
	if c.Table.MinBet <= 0 {
		return fmt.Errorf("min_bet must be positive, got %d", c.Table.MinBet)
	}
	if c.Table.MaxBet < c.Table.MinBet {
		return fmt.Errorf("max_bet %d below min_bet %d", c.Table.MaxBet, c.Table.MinBet)
	}
	return nil
}

// ListenAddress returns the host:port string for the listener.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
