package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/gemelli/tenantcore/pkg/schema"
)

type statusLine struct {
	Target    string     `json:"target"`
	Version   int64      `json:"version"`
	Path      string     `json:"path"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var master bool
	cmd := &cobra.Command{
		Use:   "status [organization]",
		Short: "Show applied and pending schema steps",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if master == (len(args) == 1) {
				return withCode(exitUsage, errUsageStatus)
			}
			ctx, env, err := openEnvironment(cmd.Context(), !master)
			if err != nil {
				return err
			}
			defer env.close()

			var (
				target   = "master"
				statuses []schema.StepStatus
			)
			if master {
				statuses, err = env.master.StatusDSN(ctx, target, env.masterDSN)
			} else {
				d, lerr := lookup(ctx, env.catalog, args[0])
				if lerr != nil {
					return lerr
				}
				target = d.Organization
				statuses, err = env.tenant.Status(ctx, d)
			}
			if err != nil {
				return withCode(exitDB, err)
			}
			for _, s := range statuses {
				line := statusLine{Target: target, Version: s.Version, Path: s.Path, Applied: s.Applied}
				if s.Applied && !s.AppliedAt.IsZero() {
					at := s.AppliedAt
					line.AppliedAt = &at
				}
				if err := writeJSONLine(cmd.OutOrStdout(), line); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&master, "master", false, "report on the master catalog instead of an organization")
	return cmd
}
