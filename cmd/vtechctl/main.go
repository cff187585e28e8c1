// Package main is the admin CLI for the chat assistant's account store.
package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/farelProject/v-technology/internal/config"
	"github.com/farelProject/v-technology/internal/store"
)

var (
	titleColor = color.New(color.Bold)
	infoColor  = color.New(color.FgCyan)
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
)

var rootCmd = &cobra.Command{
	Use:   "vtechctl",
	Short: "Administer V-Technology accounts and chat limits",
}

// openStore opens the store configured by the environment.
func openStore(cfg *config.Config) store.Store {
	st, err := store.New(store.Options{
		Driver:      store.Driver(cfg.StoreDriver),
		DataDir:     cfg.DataDir,
		DatabaseURL: cfg.DatabaseURL,
	})
	cobra.CheckErr(err)
	return st
}

func main() {
	cfg := config.Load()

	rootCmd.AddCommand(newUsersCmd(cfg))
	rootCmd.AddCommand(newLimitsCmd(cfg))
	rootCmd.AddCommand(newEventsCmd(cfg))
	rootCmd.Execute()
}
