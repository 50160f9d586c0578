package config

import (
	"github.com/urfave/cli/v3"
)

// File holds the CLI flag selecting the optional TOML configuration file
type File struct {
	path string
}

func (x *File) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to a TOML configuration file",
			Sources:     cli.EnvVars("MCP_SLACK_CONFIG"),
			TakesFile:   true,
			Destination: &x.path,
		},
	}
}

// Path returns the configured file path, empty when none
func (x *File) Path() string {
	return x.path
}

// Load reads the configuration file, returning an empty configuration when no file is set
func (x *File) Load() (*FileConfig, error) {
	return LoadFileConfig(x.path)
}
