package main

import (
	"fmt"

	"github.com/alvmarrod/ref-weaver/internal/config"
	"github.com/alvmarrod/ref-weaver/internal/storage"
	"github.com/alvmarrod/ref-weaver/internal/unity"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func indexCmd(cfg *config.Config) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the GUID index of a unity project",
		Long: `Scan the project's .meta files and record every asset GUID with its
path and type. Point --index-db at a file to keep the index; with --list the
indexed assets are printed as tab separated guid, type and path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Model != config.ModelUnity {
				return fmt.Errorf("index needs the %s model, got %s", config.ModelUnity, cfg.Model)
			}
			if cfg.IndexDBPath == storage.MemoryPath && !list {
				logrus.Warn("Index is kept in memory and discarded on exit; set --index-db to keep it")
			}

			store, err := storage.NewStorage(cfg.IndexDBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(); err != nil {
				return err
			}
			if _, err := unity.BuildIndex(cfg.ProjectRoot, store); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !list {
				n, err := store.CountAssets()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d assets indexed\n", n)
				return nil
			}

			assets, err := store.ListAssets()
			if err != nil {
				return err
			}
			for _, a := range assets {
				fmt.Fprintf(out, "%s\t%s\t%s\n", a.GUID, a.Type, a.Path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "print the indexed assets")
	return cmd
}
