package main

import (
	"github.com/spf13/cobra"

	"github.com/contactlyapp/contactly-server/internal/service"
)

func newMergeCmd(opts *rootOptions) *cobra.Command {
	var (
		entityType string
		apply      bool
	)

	cmd := &cobra.Command{
		Use:   "merge MASTER_ID DUPLICATE_ID...",
		Short: "Merge duplicate records into a master record",
		Long: `Computes which field values the master keeps and which duplicate values
are dropped. Nothing is written unless --apply is given.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer ws.Close()

			req := service.MergeRequest{
				EntityType:   entityType,
				MasterID:     args[0],
				DuplicateIDs: args[1:],
			}

			if !apply {
				plan, err := ws.duplicates.Merge(cmd.Context(), req)
				if err != nil {
					return err
				}
				if opts.output == outputYAML {
					return writeYAML(cmd.OutOrStdout(), newPlanView(plan, false))
				}
				printPlan(cmd.OutOrStdout(), plan, false)
				return nil
			}

			result, err := ws.duplicates.ApplyMerge(cmd.Context(), req)
			if err != nil {
				return err
			}
			if opts.output == outputYAML {
				return writeYAML(cmd.OutOrStdout(), newPlanView(result.Plan, true))
			}
			printPlan(cmd.OutOrStdout(), result.Plan, true)
			return nil
		},
	}

	cmd.Flags().StringVarP(&entityType, "entity-type", "t", "Contact", "Entity type (Contact, Company)")
	cmd.Flags().BoolVar(&apply, "apply", false, "Persist the merge")

	return cmd
}
