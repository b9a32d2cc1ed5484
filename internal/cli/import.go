package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/mflow/internal/core"
	"github.com/valter-silva-au/mflow/internal/observability"
	"github.com/valter-silva-au/mflow/internal/storage"
)

var importSkipSettings bool

var importCmd = &cobra.Command{
	Use:   "import <export.json>",
	Short: "Import contacts, meetings and settings from a browser-edition export",
	Long: `Import a JSON export of the browser edition's local storage.

The file maps mf_contacts, mf_tasks and mf_settings to their stored values.
Imported contacts and meetings replace the current collections whole; settings
fields present in the export overwrite the current ones.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		imp, err := storage.ReadLegacyExport(args[0])
		if err != nil {
			return err
		}

		if imp.Contacts != nil {
			if err := svc.ReplaceContacts(imp.Contacts); err != nil {
				return fmt.Errorf("importing contacts: %w", err)
			}
		}
		if imp.Tasks != nil {
			if err := svc.ReplaceTasks(imp.Tasks); err != nil {
				return fmt.Errorf("importing meetings: %w", err)
			}
		}
		settingsImported := false
		if imp.Settings != nil && !importSkipSettings {
			settings, err := svc.Settings()
			if err != nil {
				return fmt.Errorf("loading settings: %w", err)
			}
			imp.Settings.ApplyTo(settings)
			if err := svc.SaveSettings(settings); err != nil {
				return fmt.Errorf("importing settings: %w", err)
			}
			settingsImported = true
		}

		if EventLog != nil {
			data := map[string]any{
				"source":   args[0],
				"contacts": len(imp.Contacts),
				"tasks":    len(imp.Tasks),
				"settings": settingsImported,
			}
			_ = EventLog.Write(observability.Event{
				Time:    time.Now().UTC(),
				Level:   observability.LevelFor(core.EventDataImported),
				Type:    core.EventDataImported,
				Message: observability.Describe(core.EventDataImported, data),
				Data:    data,
			})
		}

		fmt.Printf("Imported %d contact(s) and %d meeting(s)", len(imp.Contacts), len(imp.Tasks))
		if settingsImported {
			fmt.Print(" and settings")
		}
		fmt.Println(".")
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importSkipSettings, "skip-settings", false, "Leave settings.yaml untouched")
	rootCmd.AddCommand(importCmd)
}
