package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/gograph/gograph/log"
)

var (
	// flags
	env        string
	configFile string

	// logger
	logger log.Logger
)

type Configuration struct {
	Auth struct {
		Key string `toml:"key"`
	} `toml:"auth"`
	Bolt struct {
		Store string `toml:"store"`
	} `toml:"bolt"`
	Bleve struct {
		Store string `toml:"store"`
	} `toml:"bleve"`
	HTTP struct {
		Addr string `toml:"addr"`
	} `toml:"http"`
	SMTP struct {
		From     string `toml:"from"`
		Password string `toml:"password"`
		Host     string `toml:"host"`
		Addr     string `toml:"addr"`
	} `toml:"smtp"`
	App struct {
		PageSize int    `toml:"page_size"`
		BaseURL  string `toml:"base_url"`
	} `toml:"app"`
}

func init() {
	RootCmd.PersistentFlags().StringVar(&env, "env", "dev", "environment")
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file")
}

var RootCmd = cobra.Command{
	Use:   "gograph",
	Short: "Share your graphs and decide who sees them",
	Long:  "Share your graphs and decide who sees them",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = log.New(env)

		if configFile == "" {
			configFile = path.Join("configuration", fmt.Sprintf("config.%s.toml", env))
		}
	},
}

func loadConfiguration() Configuration {
	data, err := os.ReadFile(configFile)
	if err != nil {
		logger.Fatal("could not read configuration file:", err)
	}

	var cfg Configuration
	if err := toml.Unmarshal(data, &cfg); err != nil {
		logger.Fatal("error unmarshalling configuration:", err)
	}

	return cfg
}

func loadSigningKey(cfg Configuration) []byte {
	keyData, err := os.ReadFile(cfg.Auth.Key)
	if err != nil {
		logger.Fatal("could not open key file:", err)
	}

	var key struct {
		Key string `json:"k"`
	}
	if err := json.Unmarshal(keyData, &key); err != nil {
		logger.Fatal("could not read key file:", err)
	}

	return []byte(key.Key)
}
