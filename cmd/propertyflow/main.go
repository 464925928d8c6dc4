package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "propertyflow",
	Short: "PropertyFlow multi-tenant property management API",
	Long:  "PropertyFlow is the API server for multi-company property management: identities are verified against an external provider or local sessions, users are synchronized just in time, and every request is scoped to a company through membership-based authorization.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/propertyflow.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
