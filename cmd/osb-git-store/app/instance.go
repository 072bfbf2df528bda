package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/osb-git-store/internal/lifecycle"
	"github.com/stacklok/osb-git-store/internal/record"
)

func newInstanceCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "instance",
		Aliases: []string{"instances"},
		Short:   "Manage service instance records",
	}
	cmd.AddCommand(
		newInstanceCreateCmd(v),
		newInstanceUpdateCmd(v),
		newInstanceDeleteCmd(v),
		newInstanceStatusCmd(v),
		newInstanceSetStatusCmd(v),
		newInstanceShowCmd(v),
		newInstanceListCmd(v),
	)
	return cmd
}

// parseObject decodes a JSON or YAML object given on the command line.
// Numbers decode the same way as in stored records.
func parseObject(flag, value string) (map[string]any, error) {
	if value == "" {
		return nil, nil
	}
	var obj map[string]any
	if err := yaml.Unmarshal([]byte(value), &obj); err != nil {
		return nil, fmt.Errorf("--%s must be a JSON or YAML object: %w", flag, err)
	}
	return obj, nil
}

// mutate runs a coordinator operation with retries and prints the operation handle
func mutate(
	cmd *cobra.Command,
	v *viper.Viper,
	fn func(ctx context.Context, c *lifecycle.Coordinator) (*lifecycle.Operation, error),
) error {
	return withEnvironment(cmd.Context(), v, func(env *environment) error {
		op, err := lifecycle.WithRetry(cmd.Context(), env.retry, func(ctx context.Context) (*lifecycle.Operation, error) {
			return fn(ctx, env.coordinator)
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, op)
	})
}

func newInstanceCreateCmd(v *viper.Viper) *cobra.Command {
	var serviceID, planID, params, platformContext string

	cmd := &cobra.Command{
		Use:   "create <instance-id>",
		Short: "Record a new service instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := parseObject("params", params)
			if err != nil {
				return err
			}
			contextObj, err := parseObject("context", platformContext)
			if err != nil {
				return err
			}
			req := lifecycle.CreateInstanceRequest{
				InstanceID:          args[0],
				ServiceDefinitionID: serviceID,
				PlanID:              planID,
				Parameters:          parameters,
				Context:             contextObj,
			}
			return mutate(cmd, v, func(ctx context.Context, c *lifecycle.Coordinator) (*lifecycle.Operation, error) {
				return c.CreateInstance(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&serviceID, "service-id", "", "Service definition id from the catalog")
	cmd.Flags().StringVar(&planID, "plan-id", "", "Plan id from the catalog")
	cmd.Flags().StringVar(&params, "params", "", "Provisioning parameters as a JSON or YAML object")
	cmd.Flags().StringVar(&platformContext, "context", "", "Platform context as a JSON or YAML object")
	cobra.CheckErr(cmd.MarkFlagRequired("service-id"))
	cobra.CheckErr(cmd.MarkFlagRequired("plan-id"))
	return cmd
}

func newInstanceUpdateCmd(v *viper.Viper) *cobra.Command {
	var planID, params, platformContext string

	cmd := &cobra.Command{
		Use:   "update <instance-id>",
		Short: "Change the plan, parameters or context of an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := parseObject("params", params)
			if err != nil {
				return err
			}
			contextObj, err := parseObject("context", platformContext)
			if err != nil {
				return err
			}
			req := lifecycle.UpdateInstanceRequest{
				InstanceID: args[0],
				PlanID:     planID,
				Parameters: parameters,
				Context:    contextObj,
			}
			return mutate(cmd, v, func(ctx context.Context, c *lifecycle.Coordinator) (*lifecycle.Operation, error) {
				return c.UpdateInstance(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&planID, "plan-id", "", "New plan id")
	cmd.Flags().StringVar(&params, "params", "", "New provisioning parameters as a JSON or YAML object")
	cmd.Flags().StringVar(&platformContext, "context", "", "New platform context as a JSON or YAML object")
	return cmd
}

func newInstanceDeleteCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <instance-id>",
		Short: "Mark an instance as deleted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, v, func(ctx context.Context, c *lifecycle.Coordinator) (*lifecycle.Operation, error) {
				return c.DeleteInstance(ctx, args[0])
			})
		},
	}
}

func newInstanceStatusCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status <instance-id>",
		Short: "Print the status of the last operation on an instance",
		Long: `Print the status of the last operation on an instance from the local working
copy. Run "git pull" first to see statuses reported by the pipeline.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnvironment(cmd.Context(), v, func(env *environment) error {
				status, err := env.coordinator.GetLastOperation(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printStatus(cmd, status)
			})
		},
	}
}

func newInstanceSetStatusCmd(v *viper.Viper) *cobra.Command {
	var state, description string

	cmd := &cobra.Command{
		Use:   "set-status <instance-id>",
		Short: "Report the outcome of the last operation on an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := parseStatus(state, description)
			if err != nil {
				return err
			}
			return mutate(cmd, v, func(ctx context.Context, c *lifecycle.Coordinator) (*lifecycle.Operation, error) {
				return c.ReportStatus(ctx, args[0], status)
			})
		},
	}

	addStatusFlags(cmd, &state, &description)
	return cmd
}

func addStatusFlags(cmd *cobra.Command, state, description *string) {
	cmd.Flags().StringVar(state, "status", "", `Operation state: "in progress", "succeeded" or "failed"`)
	cmd.Flags().StringVar(description, "description", "", "Human readable description of the state")
	cobra.CheckErr(cmd.MarkFlagRequired("status"))
}

func parseStatus(state, description string) (*record.Status, error) {
	s := record.State(state)
	if !s.Valid() {
		return nil, fmt.Errorf(`--status must be one of "in progress", "succeeded" or "failed", got %q`, state)
	}
	return &record.Status{State: s, Description: description}, nil
}

func printStatus(cmd *cobra.Command, status *record.Status) error {
	out, err := record.EncodeStatus(status)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func newInstanceShowCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "show <instance-id>",
		Short: "Print the record of an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnvironment(cmd.Context(), v, func(env *environment) error {
				inst, err := env.coordinator.GetInstance(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out, err := record.EncodeInstance(inst)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			})
		},
	}
}

func newInstanceListCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the instances in the working copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnvironment(cmd.Context(), v, func(env *environment) error {
				instances, err := env.coordinator.ListInstances(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(instances))
				for _, inst := range instances {
					rows = append(rows, []string{
						inst.ID, inst.ServiceDefinitionID, inst.PlanID, strconv.FormatBool(inst.Deleted),
					})
				}
				return renderTable(cmd, []string{"ID", "SERVICE", "PLAN", "DELETED"}, rows)
			})
		},
	}
}

func renderTable(cmd *cobra.Command, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("failed to format table: %w", err)
	}
	return table.Render()
}
