package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/pkg/serrors"
)

const catalogPageSize = 100

type migrateResult struct {
	Organization string  `json:"organization"`
	Applied      []int64 `json:"applied"`
	Current      int64   `json:"current"`
	Error        string  `json:"error,omitempty"`
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema steps",
	}
	cmd.AddCommand(newMigrateMasterCmd())
	cmd.AddCommand(newMigrateTenantCmd())
	cmd.AddCommand(newMigrateAllCmd())
	return cmd
}

func newMigrateMasterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "master",
		Short: "Migrate the master catalog database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, env, err := openEnvironment(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer env.close()

			report, err := env.master.Migrate(ctx, "master", env.masterDSN)
			if err != nil {
				return withCode(exitProvision, err)
			}
			return writeJSONLine(cmd.OutOrStdout(), migrateResult{
				Organization: "master",
				Applied:      nonNil(report.Applied),
				Current:      report.Current,
			})
		},
	}
}

func newMigrateTenantCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tenant <organization>",
		Short: "Migrate one organization's database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, env, err := openEnvironment(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer env.close()

			d, err := lookup(ctx, env.catalog, args[0])
			if err != nil {
				return err
			}
			result := migrateOne(ctx, env.tenant, d)
			if err := writeJSONLine(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if result.Error != "" {
				return withCode(exitProvision, errors.New(result.Error))
			}
			return nil
		},
	}
}

func newMigrateAllCmd() *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Migrate every organization in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if concurrency < 1 {
				return withCode(exitUsage, fmt.Errorf("--concurrency must be at least 1, got %d", concurrency))
			}
			ctx, env, err := openEnvironment(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer env.close()

			descriptors, err := listAll(ctx, env.catalog)
			if err != nil {
				return err
			}

			var (
				mu     sync.Mutex
				failed int
				out    = cmd.OutOrStdout()
			)
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(concurrency)
			for _, d := range descriptors {
				g.Go(func() error {
					result := migrateOne(gctx, env.tenant, d)
					mu.Lock()
					defer mu.Unlock()
					if result.Error != "" {
						failed++
					}
					return writeJSONLine(out, result)
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			if failed > 0 {
				return withCode(exitProvision, fmt.Errorf("%d of %d organizations failed to migrate", failed, len(descriptors)))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "organizations migrated in parallel")
	return cmd
}

func migrateOne(ctx context.Context, m tenantMigrator, d *descriptor.Descriptor) migrateResult {
	result := migrateResult{Organization: d.Organization, Applied: []int64{}}
	report, err := m.EnsureMigrated(ctx, d)
	if report != nil {
		result.Applied = nonNil(report.Applied)
		result.Current = report.Current
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

func lookup(ctx context.Context, catalog descriptorSource, organization string) (*descriptor.Descriptor, error) {
	d, err := catalog.GetByOrganization(ctx, organization)
	if errors.Is(err, serrors.ErrDescriptorNotFound) {
		return nil, withCode(exitNotFound, fmt.Errorf("organization %q has no data config", organization))
	}
	if err != nil {
		return nil, withCode(exitDB, err)
	}
	return d, nil
}

func listAll(ctx context.Context, catalog descriptorSource) ([]*descriptor.Descriptor, error) {
	var out []*descriptor.Descriptor
	for offset := 0; ; offset += catalogPageSize {
		page, err := catalog.List(ctx, &descriptor.FindParams{Limit: catalogPageSize, Offset: offset})
		if err != nil {
			return nil, withCode(exitDB, errors.Wrap(err, "list data configs"))
		}
		out = append(out, page...)
		if len(page) < catalogPageSize {
			return out, nil
		}
	}
}

func nonNil(v []int64) []int64 {
	if v == nil {
		return []int64{}
	}
	return v
}
