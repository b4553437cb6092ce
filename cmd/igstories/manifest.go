package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"igstories/pkg/instagram"
	"igstories/pkg/metadata"
	"igstories/pkg/ui"
)

// manifestCmd represents the manifest command
var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Inspect the per-account download manifests",
}

var manifestShowCmd = &cobra.Command{
	Use:   "show <account>...",
	Short: "List the stories recorded for accounts",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runManifestShow,
}

var manifestCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Drop manifest entries whose file was deleted",
	RunE:  runManifestClean,
}

func init() {
	rootCmd.AddCommand(manifestCmd)
	manifestCmd.AddCommand(manifestShowCmd)
	manifestCmd.AddCommand(manifestCleanCmd)
	manifestCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "download directory")
}

func runManifestShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]interface{}{"output": outputDir})
	if err != nil {
		return err
	}
	dir := cfg.Output.DownloadDirectory

	accounts, err := instagram.ParseTargets(args)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		if !metadata.ManifestExists(dir, account) {
			ui.PrintWarning("No manifest", account)
			continue
		}
		m, err := metadata.Load(dir, account)
		if err != nil {
			return err
		}
		ui.PrintHighlight(fmt.Sprintf("%s: %d stories, %s", account, len(m.Entries), ui.FormatBytes(m.TotalBytes())))
		for _, e := range m.Entries {
			fmt.Printf("  %-32s %-6s %-8s %10s  %s\n", e.Filename, e.Kind, e.Source, ui.FormatBytes(int64(e.Size)), e.SavedAt.Local().Format(time.DateTime))
		}
	}
	return nil
}

func runManifestClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]interface{}{"output": outputDir})
	if err != nil {
		return err
	}

	removed, err := metadata.CleanOrphanedEntries(cfg.Output.DownloadDirectory)
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Removed %d orphaned entries", removed))
	return nil
}
