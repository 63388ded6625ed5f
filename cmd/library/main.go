// Command library runs the Library Lending API and its maintenance tasks.
//
// @title                       Library Lending API
// @version                     1.0
// @description                 Catalog, accounts and the lending ledger of a small library.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/shelfmark/library-api/internal/infrastructure/config"
	"github.com/shelfmark/library-api/pkg/logger"
)

// app is filled by the root command before any subcommand runs.
type app struct {
	cfg *config.Config
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "library",
		Short:         "Library Lending API",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			a.cfg = cfg
			logger.Init(logger.Options{
				Level:   cfg.LogLevel,
				Pretty:  !cfg.IsProduction(),
				Service: "library-api",
			})
			return nil
		},
	}
	root.AddCommand(newServeCmd(a), newSeedCmd(a), newCreateAdminCmd(a))
	return root
}
