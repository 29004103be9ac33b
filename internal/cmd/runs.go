package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pyscout/scout/internal/config"
	"github.com/pyscout/scout/internal/storage"
)

func (a *app) newRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List stored crawl runs or show the pages of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if done, err := a.handleShowConfig(cmd); done {
				return err
			}
			if a.cfg.DatabasePath == "" {
				return fmt.Errorf("no database configured: use --database or database_path")
			}
			if _, err := os.Stat(a.cfg.DatabasePath); err != nil {
				return fmt.Errorf("failed to open database %s: %w", a.cfg.DatabasePath, err)
			}

			store, err := storage.NewSQLiteStorage(a.cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			w := cmd.OutOrStdout()
			if len(args) == 1 {
				return showRun(w, store, args[0], a.cfg)
			}
			return listRuns(w, store, a.cfg)
		},
	}
}

func listRuns(w io.Writer, store *storage.SQLiteStorage, cfg *config.Config) error {
	ids, err := store.Runs()
	if err != nil {
		return err
	}
	summaries := make([]storage.RunSummary, 0, len(ids))
	for _, id := range ids {
		sum, err := store.RunStats(id)
		if err != nil {
			return err
		}
		summaries = append(summaries, sum)
	}

	if strings.ToLower(cfg.Format) == "json" {
		return writeJSON(w, summaries, cfg.Indent)
	}
	for _, s := range summaries {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d pages\t%d failed\t%s\t%s\n",
			s.ID, s.Status, humanize.Time(s.StartedAt), s.Pages, s.Failed,
			humanize.Bytes(uint64(s.Bytes)), s.Seed); err != nil {
			return err
		}
	}
	return nil
}

func showRun(w io.Writer, store *storage.SQLiteStorage, runID string, cfg *config.Config) error {
	sum, err := store.RunStats(runID)
	if err != nil {
		return err
	}
	pages, err := store.Records(runID)
	if err != nil {
		return err
	}

	if strings.ToLower(cfg.Format) == "json" {
		return writeJSON(w, struct {
			Run   storage.RunSummary `json:"run"`
			Pages []storage.Page     `json:"pages"`
		}{sum, pages}, cfg.Indent)
	}

	fmt.Fprintf(w, "Run %s (%s) of %s\n", sum.ID, sum.Status, sum.Seed)
	fmt.Fprintf(w, "Started %s, %s pages, %s links, %s\n",
		humanize.Time(sum.StartedAt), humanize.Comma(int64(sum.Pages)),
		humanize.Comma(int64(sum.Links)), humanize.Bytes(uint64(sum.Bytes)))
	for _, p := range pages {
		if p.Error != "" {
			fmt.Fprintf(w, "%d\t%s\tERROR %s\n", p.Depth, p.URL, p.Error)
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d links\t%s\n", p.Depth, p.URL, p.StatusCode, len(p.Links), p.Title)
	}
	return nil
}
