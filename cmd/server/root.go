package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "aserver",
	Short: "Agent portal API server",
	Long: `REST API for the call-center agent portal: agent records, scripts and
business hours, with business hours mirrored to the telephony platform.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("AGENT_PORTAL_CONFIG"), "Path to config file (default: ./config/config.yaml)")
}
