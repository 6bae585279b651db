package process

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"gopkg.in/yaml.v3"
)

// BotConfig describes an external program that plays as an AI provider.
type BotConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile is the layout of bots.yaml.
type ConfigFile struct {
	Bots []BotConfig `yaml:"bots" json:"bots"`
}

// LoadBots reads a YAML or JSON bots file. An empty path means no bots.
func LoadBots(path string) ([]BotConfig, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ConfigError("read bots file: %v", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, domain.ConfigError("parse bots file %s: %v", path, err)
	}

	seen := make(map[string]bool, len(cfg.Bots))
	for _, bot := range cfg.Bots {
		switch {
		case strings.TrimSpace(bot.Name) == "":
			return nil, domain.ConfigError("bot without a name in %s", path)
		case strings.TrimSpace(bot.Command) == "":
			return nil, domain.ConfigError("bot %q has no command", bot.Name)
		case seen[bot.Name]:
			return nil, domain.ConfigError("bot %q is declared twice", bot.Name)
		}
		seen[bot.Name] = true
	}
	return cfg.Bots, nil
}
