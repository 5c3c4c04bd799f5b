package main

import (
	"errors"
	"track-spatial/internal/extract"
	"track-spatial/internal/ingest"
	"track-spatial/internal/recording"

	"github.com/spf13/cobra"
)

var errNoInput = errors.New("no input files")

type importFlags struct {
	user       string
	ext        string
	skipLocs   bool
	skipWpts   bool
	createUser bool
}

func newImportCommand(a *app) *cobra.Command {
	var f importFlags
	cmd := &cobra.Command{
		Use:   "import -u NAME PATH...",
		Short: "Import GPX files, directories or glob patterns",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, f, args)
		},
	}
	cmd.Flags().StringVarP(&f.user, "user", "u", "", "user the recordings belong to")
	cmd.Flags().StringVar(&f.ext, "ext", ".gpx", "file extension to import from directories")
	cmd.Flags().BoolVarP(&f.skipLocs, "skip-locations", "s", false, "do not look up regions for points")
	cmd.Flags().BoolVarP(&f.skipWpts, "skip-waypoints", "w", false, "do not import waypoints")
	cmd.Flags().BoolVar(&f.createUser, "create-user", false, "create the user without asking")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// confirmer：--create-user 直接创建；终端且非安静模式询问；其余情况不创建
func (a *app) confirmer(f importFlags) ingest.Confirmer {
	switch {
	case f.createUser:
		return ingest.AutoConfirm
	case !a.cfg.Quiet && a.interactive():
		return ingest.PromptConfirmer(a.in, a.err)
	}
	return nil
}

func (a *app) runImport(cmd *cobra.Command, f importFlags, args []string) error {
	ctx := cmd.Context()
	files, invalid := recording.FindFiles(args, f.ext)
	for _, p := range invalid {
		a.log.Warn("input_not_found", "path", p, "ext", f.ext)
	}
	a.printf("Found %d %s files.\n", len(files), f.ext)
	if len(files) == 0 {
		return errNoInput
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	userID, err := ingest.ResolveUser(ctx, st, f.user, a.confirmer(f), a.log)
	if err != nil {
		return err
	}

	var resolver extract.Resolver
	if !f.skipLocs {
		ix, release, err := a.loadIndex(ctx, st)
		if err != nil {
			return err
		}
		defer release()
		resolver = ix
	}

	imp := ingest.NewImporter(st, extract.New(resolver, a.log), ingest.Options{
		Extract: extract.Options{SkipRegionLookup: f.skipLocs, SkipWaypoints: f.skipWpts},
	}, a.log)
	res, err := imp.ImportBatch(ctx, userID, files)
	a.printf("Imported %d of %d files (%d already imported, %d skipped): %d points, %d duplicate points.\n",
		res.Committed, len(files), res.AlreadyImported, res.Skipped, res.Points, res.Duplicates)
	return err
}
