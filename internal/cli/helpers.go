package cli

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/valter-silva-au/mflow/pkg/models"
)

func errNotInitialized(what string) error {
	return fmt.Errorf("%s not initialized", what)
}

func parseChannel(s string) (models.Channel, error) {
	if s == "" {
		return models.ChannelWechat, nil
	}
	c := models.Channel(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("invalid channel %q: must be wechat or sms", s)
	}
	return c, nil
}

// contactSource adapts a contact slice for fuzzy matching.
type contactSource []models.Contact

func (cs contactSource) String(i int) string {
	c := cs[i]
	return strings.Join([]string{c.Name, c.Dept, c.WechatRemark, c.Phone}, " ")
}

func (cs contactSource) Len() int { return len(cs) }

// findContacts returns the contacts matching query, best match first.
func findContacts(contacts []models.Contact, query string) []models.Contact {
	matches := fuzzy.FindFrom(query, contactSource(contacts))
	out := make([]models.Contact, 0, len(matches))
	for _, m := range matches {
		out = append(out, contacts[m.Index])
	}
	return out
}

// resolveContact finds one contact by id, exact name, or an unambiguous
// fuzzy match.
func resolveContact(contacts []models.Contact, query string) (models.Contact, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.Contact{}, fmt.Errorf("empty contact reference")
	}
	for _, c := range contacts {
		if c.ID == query {
			return c, nil
		}
	}
	var byName []models.Contact
	for _, c := range contacts {
		if c.Name == query {
			byName = append(byName, c)
		}
	}
	switch len(byName) {
	case 1:
		return byName[0], nil
	case 0:
	default:
		return models.Contact{}, fmt.Errorf("%q names %d contacts; use the contact id", query, len(byName))
	}

	matches := findContacts(contacts, query)
	switch len(matches) {
	case 0:
		return models.Contact{}, fmt.Errorf("no contact matches %q", query)
	case 1:
		return matches[0], nil
	}
	names := make([]string, 0, 3)
	for i, m := range matches {
		if i == 3 {
			break
		}
		names = append(names, fmt.Sprintf("%s (%s)", m.Name, m.ID))
	}
	return models.Contact{}, fmt.Errorf("%q is ambiguous: %s", query, strings.Join(names, ", "))
}

// contactIDFor resolves a command argument to a contact id using the stored
// contacts.
func contactIDFor(query string) (string, error) {
	svc, err := requireService()
	if err != nil {
		return "", err
	}
	contacts, err := svc.Contacts()
	if err != nil {
		return "", fmt.Errorf("loading contacts: %w", err)
	}
	c, err := resolveContact(contacts, query)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}
