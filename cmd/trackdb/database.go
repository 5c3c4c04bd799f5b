package main

import (
	"os"
	"track-spatial/internal/catalog"
	"track-spatial/internal/ingest"

	"github.com/spf13/cobra"
)

func newCreateDBCommand(a *app) *cobra.Command {
	var regionsFile, scriptFile string
	cmd := &cobra.Command{
		Use:   "create-db",
		Short: "Create the schema, optionally loading regions and running a SQL script",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.EnsureSchema(ctx); err != nil {
				return err
			}
			a.log.Info("schema_ready", "driver", string(st.Dialect()))
			if regionsFile != "" {
				f, err := os.Open(regionsFile)
				if err != nil {
					return err
				}
				defer f.Close()
				n, failed, err := catalog.Import(ctx, st, f, a.log)
				if err != nil {
					return err
				}
				a.printf("Imported %d regions, %d failed.\n", n, failed)
			}
			if scriptFile != "" {
				b, err := os.ReadFile(scriptFile)
				if err != nil {
					return err
				}
				if err := st.ExecScript(ctx, string(b)); err != nil {
					return err
				}
				a.log.Info("script_executed", "file", scriptFile)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&regionsFile, "custom-regions", "c", "", "region catalog script to load")
	cmd.Flags().StringVarP(&scriptFile, "execute-script", "e", "", "SQL script to run after creation")
	return cmd
}

func newRegionsCommand(a *app) *cobra.Command {
	var exportFile, importFile string
	cmd := &cobra.Command{
		Use:   "regions (-e FILE | -i FILE)",
		Short: "Export or import the region catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.CheckSchema(ctx); err != nil {
				return err
			}
			if exportFile != "" {
				f, err := os.Create(exportFile)
				if err != nil {
					return err
				}
				n, err := catalog.Export(ctx, st, f, a.log)
				if cerr := f.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					return err
				}
				a.printf("Exported %d regions.\n", n)
				return nil
			}
			f, err := os.Open(importFile)
			if err != nil {
				return err
			}
			defer f.Close()
			n, failed, err := catalog.Import(ctx, st, f, a.log)
			if err != nil {
				return err
			}
			a.printf("Imported %d regions.\n", n)
			if failed > 0 {
				a.printf("%d regions failed.\n", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&exportFile, "export", "e", "", "write the catalog to FILE")
	cmd.Flags().StringVarP(&importFile, "import", "i", "", "load regions from FILE")
	cmd.MarkFlagsMutuallyExclusive("export", "import")
	cmd.MarkFlagsOneRequired("export", "import")
	return cmd
}

func newUpdateLocationsCommand(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "update-locations",
		Short: "Recompute point regions after the catalog changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.CheckSchema(ctx); err != nil {
				return err
			}
			ix, release, err := a.loadIndex(ctx, st)
			if err != nil {
				return err
			}
			defer release()
			n, err := ingest.UpdateLocations(ctx, st, ix, all, a.log)
			if err != nil {
				return err
			}
			a.printf("Updated %d track points.\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all-locations", "a", false, "re-check every point, not only unknown ones")
	return cmd
}

func newStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.CheckSchema(ctx); err != nil {
				return err
			}
			c, err := st.Counts(ctx)
			if err != nil {
				return err
			}
			// 统计是命令的输出本身，不受安静模式影响
			_, err = cmd.OutOrStdout().Write([]byte(c.String()))
			return err
		},
	}
}
