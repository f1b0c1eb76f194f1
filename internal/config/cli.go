package config

import (
	"flag"
	"fmt"
	"os"
)

// ParseFlags parses command line flags and returns the config file path
func ParseFlags() (configFile string, generateConfig bool, err error) {
	flag.StringVar(&configFile, "config", "", "Path to configuration file")
	flag.BoolVar(&generateConfig, "generate-config", false, "Print an example configuration file")
	help := flag.Bool("help", false, "Show help")

	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}

	return configFile, generateConfig, nil
}

// GenerateExampleConfig prints the default configuration as YAML
func GenerateExampleConfig() error {
	out, err := ExampleYAML()
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
