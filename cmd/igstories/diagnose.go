package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"igstories/pkg/instagram"
	"igstories/pkg/locator"
	"igstories/pkg/ui"
)

// diagnoseCmd represents the diagnose command
var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <dump.html>",
	Short: "Check which locators match a saved markup dump",
	Long: `Replay every element locator against a markup dump written after a
failure and show which probe of each chain matches.

A chain with no match usually means Instagram changed its markup.`,
	Example: `  igstories diagnose images/no_stories_natgeo-20240101-120000.html`,
	Args:    cobra.ExactArgs(1),
	RunE:    runDiagnose,
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	markup, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read dump: %w", err)
	}
	doc, err := locator.ParseMarkup(string(markup))
	if err != nil {
		return err
	}

	missing := 0
	for _, chain := range instagram.Chains() {
		rows := chain.Report(doc)
		picked := -1
		for i, row := range rows {
			if row.Matches > 0 {
				picked = i
				break
			}
		}

		if picked < 0 {
			missing++
			fmt.Printf("%s %s\n", ui.Red("✗"), chain.Name)
		} else {
			fmt.Printf("%s %s\n", ui.Green("✓"), chain.Name)
		}
		for i, row := range rows {
			marker := "  "
			if i == picked {
				marker = "→ "
			}
			fmt.Printf("    %s%-40s %d\n", marker, row.Probe.String(), row.Matches)
		}
	}

	fmt.Println()
	if missing > 0 {
		ui.PrintWarning(fmt.Sprintf("%d of %d chains matched nothing", missing, len(instagram.Chains())))
	} else {
		ui.PrintSuccess("Every chain matched")
	}
	return nil
}
