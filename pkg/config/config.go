package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Export struct {
		Product          string `yaml:"product"`
		DefaultTitle     string `yaml:"default_title"`
		UserLabel        string `yaml:"user_label"`
		AssistantLabel   string `yaml:"assistant_label"`
		TitleMaxLen      int    `yaml:"title_max_len"`
		WarningThreshold int    `yaml:"warning_threshold"`
	} `yaml:"export"`

	Selectors struct {
		Containers      []string `yaml:"containers"`
		User            string   `yaml:"user"`
		Model           string   `yaml:"model"`
		AggressiveUser  string   `yaml:"aggressive_user"`
		AggressiveModel string   `yaml:"aggressive_model"`
		QueryText       string   `yaml:"query_text"`
		ResponseText    string   `yaml:"response_text"`
		Title           string   `yaml:"title"`
	} `yaml:"selectors"`

	Source struct {
		Kind       string  `yaml:"kind"`
		Path       string  `yaml:"path"`
		URL        string  `yaml:"url"`
		BrowserURL string  `yaml:"browser_url"`
		HostMatch  string  `yaml:"host_match"`
		RateLimit  float64 `yaml:"rate_limit"`
		Timeout    string  `yaml:"timeout"`
	} `yaml:"source"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"chatexport.yaml",
			"chatexport.yml",
			filepath.Join(os.Getenv("HOME"), ".config/chatexport/config.yaml"),
			"/etc/chatexport/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Export.Product == "" {
		config.Export.Product = "gemini"
	}
	if config.Export.DefaultTitle == "" {
		config.Export.DefaultTitle = "Gemini Conversation"
	}
	if config.Export.UserLabel == "" {
		config.Export.UserLabel = "User"
	}
	if config.Export.AssistantLabel == "" {
		config.Export.AssistantLabel = "Gemini"
	}
	if config.Export.TitleMaxLen == 0 {
		config.Export.TitleMaxLen = 60
	}
	if config.Export.WarningThreshold == 0 {
		config.Export.WarningThreshold = 10
	}

	if len(config.Selectors.Containers) == 0 {
		config.Selectors.Containers = []string{
			`.conversation-container, [class*="chat-history"]`,
			`[class*="content-container"], main`,
		}
	}
	if config.Selectors.User == "" {
		config.Selectors.User = `[class*="user-query"]`
	}
	if config.Selectors.Model == "" {
		config.Selectors.Model = `[class*="model-response"]`
	}
	if config.Selectors.AggressiveUser == "" {
		config.Selectors.AggressiveUser = `.user-query-container, [class*="user-query-bubble"]`
	}
	if config.Selectors.AggressiveModel == "" {
		config.Selectors.AggressiveModel = `.model-response-text, .response-container, [class*="model-response"]`
	}
	if config.Selectors.QueryText == "" {
		config.Selectors.QueryText = ".query-text"
	}
	if config.Selectors.ResponseText == "" {
		config.Selectors.ResponseText = ".model-response-text"
	}
	if config.Selectors.Title == "" {
		config.Selectors.Title = config.Selectors.AggressiveUser
	}

	if config.Source.Kind == "" {
		config.Source.Kind = "file"
	}
	if config.Source.HostMatch == "" {
		config.Source.HostMatch = "gemini.google.com"
	}
	if config.Source.RateLimit == 0 {
		config.Source.RateLimit = 2.0
	}
	if config.Source.Timeout == "" {
		config.Source.Timeout = "30s"
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Output.Dir == "" {
		config.Output.Dir = "."
	}
}

func mergeWithEnv(config *Config) {
	if browserURL := os.Getenv("CHATEXPORT_BROWSER_URL"); browserURL != "" {
		config.Source.BrowserURL = browserURL
	}
	if dir := os.Getenv("CHATEXPORT_OUTPUT_DIR"); dir != "" {
		config.Output.Dir = dir
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Addr = ":" + port
	}
}
