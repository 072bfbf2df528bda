package app

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/osb-git-store/internal/lifecycle"
	"github.com/stacklok/osb-git-store/internal/record"
)

func newBindingCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "binding",
		Aliases: []string{"bindings"},
		Short:   "Manage service binding records",
	}
	cmd.AddCommand(
		newBindingCreateCmd(v),
		newBindingDeleteCmd(v),
		newBindingStatusCmd(v),
		newBindingSetStatusCmd(v),
		newBindingShowCmd(v),
		newBindingListCmd(v),
	)
	return cmd
}

func newBindingCreateCmd(v *viper.Viper) *cobra.Command {
	var serviceID, planID, params, bindResource string

	cmd := &cobra.Command{
		Use:   "create <instance-id> <binding-id>",
		Short: "Record a new binding of an instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := parseObject("params", params)
			if err != nil {
				return err
			}
			resource, err := parseObject("bind-resource", bindResource)
			if err != nil {
				return err
			}
			req := lifecycle.CreateBindingRequest{
				InstanceID:          args[0],
				BindingID:           args[1],
				ServiceDefinitionID: serviceID,
				PlanID:              planID,
				Parameters:          parameters,
				BindResource:        resource,
			}
			return mutate(cmd, v, func(ctx context.Context, c *lifecycle.Coordinator) (*lifecycle.Operation, error) {
				return c.CreateBinding(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&serviceID, "service-id", "", "Service definition id from the catalog")
	cmd.Flags().StringVar(&planID, "plan-id", "", "Plan id from the catalog")
	cmd.Flags().StringVar(&params, "params", "", "Binding parameters as a JSON or YAML object")
	cmd.Flags().StringVar(&bindResource, "bind-resource", "", "Bind resource as a JSON or YAML object")
	return cmd
}

func newBindingDeleteCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <instance-id> <binding-id>",
		Short: "Mark a binding as deleted",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, v, func(ctx context.Context, c *lifecycle.Coordinator) (*lifecycle.Operation, error) {
				return c.DeleteBinding(ctx, args[0], args[1])
			})
		},
	}
}

func newBindingStatusCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status <instance-id> <binding-id>",
		Short: "Print the status of the last operation on a binding",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnvironment(cmd.Context(), v, func(env *environment) error {
				status, err := env.coordinator.GetLastBindingOperation(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return printStatus(cmd, status)
			})
		},
	}
}

func newBindingSetStatusCmd(v *viper.Viper) *cobra.Command {
	var state, description string

	cmd := &cobra.Command{
		Use:   "set-status <instance-id> <binding-id>",
		Short: "Report the outcome of the last operation on a binding",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := parseStatus(state, description)
			if err != nil {
				return err
			}
			return mutate(cmd, v, func(ctx context.Context, c *lifecycle.Coordinator) (*lifecycle.Operation, error) {
				return c.ReportBindingStatus(ctx, args[0], args[1], status)
			})
		},
	}

	addStatusFlags(cmd, &state, &description)
	return cmd
}

func newBindingShowCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "show <instance-id> <binding-id>",
		Short: "Print the record of a binding",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnvironment(cmd.Context(), v, func(env *environment) error {
				binding, err := env.coordinator.GetBinding(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				out, err := record.EncodeBinding(binding)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			})
		},
	}
}

func newBindingListCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list <instance-id>",
		Short: "List the bindings of an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnvironment(cmd.Context(), v, func(env *environment) error {
				bindings, err := env.coordinator.ListBindings(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(bindings))
				for _, b := range bindings {
					rows = append(rows, []string{b.BindingID, b.PlanID, strconv.FormatBool(b.Deleted)})
				}
				return renderTable(cmd, []string{"ID", "PLAN", "DELETED"}, rows)
			})
		},
	}
}
