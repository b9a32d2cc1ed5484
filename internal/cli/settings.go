package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/mflow/internal/core"
	"github.com/valter-silva-au/mflow/pkg/models"
	"gopkg.in/yaml.v3"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show and check settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		settings, err := svc.Settings()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		data, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("formatting settings: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate settings.yaml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		settings, err := svc.Settings()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		if err := core.ValidateSettings(settings); err != nil {
			return err
		}
		fmt.Println("Settings are valid.")
		return nil
	},
}

var vocabularyCmd = &cobra.Command{
	Use:   "vocabulary",
	Short: "Edit the department and position lists",
}

var vocabularyAddCmd = &cobra.Command{
	Use:   "add <departments|positions> <label>",
	Short: "Add a department or position",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editVocabulary(args[0], args[1], core.AddVocabularyEntry, "Added", "already present")
	},
}

var vocabularyRemoveCmd = &cobra.Command{
	Use:   "remove <departments|positions> <label>",
	Short: "Remove a department or position",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editVocabulary(args[0], args[1], core.RemoveVocabularyEntry, "Removed", "not present")
	},
}

type vocabularyEdit func(settings *models.Settings, v core.Vocabulary, label string) (bool, error)

func editVocabulary(list, label string, edit vocabularyEdit, done, unchanged string) error {
	svc, err := requireService()
	if err != nil {
		return err
	}
	v, err := core.ParseVocabulary(list)
	if err != nil {
		return err
	}
	settings, err := svc.Settings()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	changed, err := edit(settings, v, label)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Printf("%q %s in %s.\n", label, unchanged, v)
		return nil
	}
	if err := svc.SaveSettings(settings); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	fmt.Printf("%s %q in %s.\n", done, label, v)
	return nil
}

func init() {
	vocabularyCmd.AddCommand(vocabularyAddCmd, vocabularyRemoveCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsValidateCmd, vocabularyCmd)
	rootCmd.AddCommand(settingsCmd)
}
