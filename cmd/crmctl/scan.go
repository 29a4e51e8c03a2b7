package main

import (
	"github.com/spf13/cobra"

	"github.com/contactlyapp/contactly-server/internal/service"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	var (
		entityType  string
		fields      []string
		sensitivity string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List groups of likely duplicate records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer ws.Close()

			result, err := ws.duplicates.Scan(cmd.Context(), service.ScanRequest{
				EntityType:  entityType,
				Fields:      fields,
				Sensitivity: sensitivity,
			})
			if err != nil {
				return err
			}

			if opts.output == outputYAML {
				return writeYAML(cmd.OutOrStdout(), newScanView(result))
			}
			printScan(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&entityType, "entity-type", "t", "Contact", "Entity type (Contact, Company)")
	cmd.Flags().StringSliceVarP(&fields, "fields", "f", []string{"Name", "Email", "Phone"}, "Fields to compare")
	cmd.Flags().StringVarP(&sensitivity, "sensitivity", "s", "Medium", "Match sensitivity (High, Medium, Low)")

	return cmd
}
