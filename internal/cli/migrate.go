package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the command that only applies the schema.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDatabase(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer db.Close()
			log.Info().Str("driver", db.Driver).Msg("Database schema is up to date")
			return nil
		},
	}
}
