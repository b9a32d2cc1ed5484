package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/mflow/internal/core"
	"github.com/valter-silva-au/mflow/pkg/models"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Inspect notification templates",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured templates",
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
		if len(settings.Templates) == 0 {
			fmt.Println("No templates configured.")
			return nil
		}
		fmt.Printf("%-20s %-8s %s\n", "ID", "TYPE", "NAME")
		for _, t := range settings.Templates {
			fmt.Printf("%-20s %-8s %s\n", t.ID, t.Type, t.Name)
		}
		return nil
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <template-id>",
	Short: "Print a template's text and the tokens it uses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		settings, err := svc.Settings()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		t, ok := settings.TemplateByID(args[0])
		if !ok {
			return fmt.Errorf("template %s not found", args[0])
		}
		fmt.Printf("%s (%s, %s)\n\n%s\n\n", t.ID, t.Type, t.Name, t.Content)
		fmt.Printf("Tokens: %s\n", strings.Join(core.TemplateTokens(t.Content), " "))
		return nil
	},
}

var templateValidateCmd = &cobra.Command{
	Use:   "validate [template-id]",
	Short: "Check templates for unknown or misplaced tokens",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		settings, err := svc.Settings()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		templates := settings.Templates
		if len(args) == 1 {
			t, ok := settings.TemplateByID(args[0])
			if !ok {
				return fmt.Errorf("template %s not found", args[0])
			}
			templates = []models.Template{t}
		}

		bad := 0
		for _, t := range templates {
			problems := core.ValidateTemplate(t)
			if len(problems) == 0 {
				fmt.Printf("  ok    %s\n", t.ID)
				continue
			}
			bad++
			fmt.Printf("  FAIL  %s\n", t.ID)
			for _, p := range problems {
				fmt.Printf("        - %s\n", p)
			}
		}
		if bad > 0 {
			return fmt.Errorf("%d template(s) have problems", bad)
		}
		return nil
	},
}

func init() {
	templateCmd.AddCommand(templateListCmd, templateShowCmd, templateValidateCmd)
	rootCmd.AddCommand(templateCmd)
}
