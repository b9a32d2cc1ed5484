package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/mflow/pkg/models"
)

var (
	contactName        string
	contactDept        string
	contactPosition    string
	contactPhone       string
	contactWechat      string
	contactProcurement bool
)

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Manage the contact directory",
}

var contactListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all contacts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		contacts, err := svc.Contacts()
		if err != nil {
			return fmt.Errorf("loading contacts: %w", err)
		}
		printContacts(contacts)
		return nil
	},
}

var contactAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a contact",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		name := strings.TrimSpace(contactName)
		if name == "" {
			return fmt.Errorf("--name is required")
		}
		contacts, err := svc.Contacts()
		if err != nil {
			return fmt.Errorf("loading contacts: %w", err)
		}
		settings, err := svc.Settings()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		if contactDept != "" && !contains(settings.Departments, contactDept) {
			fmt.Printf("Note: department %q is not in the settings vocabulary.\n", contactDept)
		}
		if contactPosition != "" && !contains(settings.Positions, contactPosition) {
			fmt.Printf("Note: position %q is not in the settings vocabulary.\n", contactPosition)
		}

		c := models.Contact{
			ID:            uuid.NewString(),
			Name:          name,
			Dept:          contactDept,
			Phone:         contactPhone,
			Position:      contactPosition,
			WechatRemark:  contactWechat,
			IsProcurement: contactProcurement,
		}
		if err := svc.ReplaceContacts(append(contacts, c)); err != nil {
			return fmt.Errorf("saving contacts: %w", err)
		}
		fmt.Printf("Added contact %s (%s)\n", c.Name, c.ID)
		return nil
	},
}

var contactFindCmd = &cobra.Command{
	Use:   "find <query>",
	Short: "Fuzzy-search contacts by name, department, chat handle or phone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		contacts, err := svc.Contacts()
		if err != nil {
			return fmt.Errorf("loading contacts: %w", err)
		}
		printContacts(findContacts(contacts, args[0]))
		return nil
	},
}

var contactRemoveCmd = &cobra.Command{
	Use:   "remove <contact>",
	Short: "Remove a contact from the directory",
	Long: `Remove a contact from the directory.

Meeting participant records that still name the contact are kept; they are
ignored when the queue is built.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireService()
		if err != nil {
			return err
		}
		contacts, err := svc.Contacts()
		if err != nil {
			return fmt.Errorf("loading contacts: %w", err)
		}
		target, err := resolveContact(contacts, args[0])
		if err != nil {
			return err
		}
		kept := make([]models.Contact, 0, len(contacts))
		for _, c := range contacts {
			if c.ID != target.ID {
				kept = append(kept, c)
			}
		}
		if err := svc.ReplaceContacts(kept); err != nil {
			return fmt.Errorf("saving contacts: %w", err)
		}
		fmt.Printf("Removed contact %s (%s)\n", target.Name, target.ID)
		return nil
	},
}

func printContacts(contacts []models.Contact) {
	if len(contacts) == 0 {
		fmt.Println("No contacts found.")
		return
	}
	fmt.Printf("%-38s %-10s %-10s %-6s %-14s %s\n", "ID", "NAME", "DEPT", "TITLE", "PHONE", "WECHAT")
	for _, c := range contacts {
		name := c.Name
		if c.IsProcurement {
			name += "*"
		}
		fmt.Printf("%-38s %-10s %-10s %-6s %-14s %s\n", c.ID, name, c.Dept, c.Position, c.Phone, c.WechatRemark)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func init() {
	contactAddCmd.Flags().StringVar(&contactName, "name", "", "Full name (required)")
	contactAddCmd.Flags().StringVar(&contactDept, "dept", "", "Department")
	contactAddCmd.Flags().StringVar(&contactPosition, "position", "", "Position title, e.g. 总 or 工")
	contactAddCmd.Flags().StringVar(&contactPhone, "phone", "", "Phone number (sms target)")
	contactAddCmd.Flags().StringVar(&contactWechat, "wechat", "", "WeChat remark name (wechat target)")
	contactAddCmd.Flags().BoolVar(&contactProcurement, "procurement", false, "Contact receives procurement details")

	contactCmd.AddCommand(contactListCmd, contactAddCmd, contactFindCmd, contactRemoveCmd)
	rootCmd.AddCommand(contactCmd)
}
