package models

// Contact is a person in the directory. Tasks reference contacts by ID and
// never own them.
type Contact struct {
	ID            string `yaml:"id" json:"id"`
	Name          string `yaml:"name" json:"name"`
	Dept          string `yaml:"dept" json:"dept"`
	Phone         string `yaml:"phone" json:"phone"`
	Position      string `yaml:"position" json:"position"`
	WechatRemark  string `yaml:"wechat_remark" json:"wechatRemark"`
	IsProcurement bool   `yaml:"is_procurement,omitempty" json:"isProcurement"`
}

// Surname returns the first character of the contact's name, which is how
// Chinese courtesy forms ("张总", "李工") are built.
func (c Contact) Surname() string {
	for _, r := range c.Name {
		return string(r)
	}
	return ""
}

// ContactIndex builds an ID lookup over a contact collection. When the same ID
// appears more than once the first entry wins.
func ContactIndex(contacts []Contact) map[string]Contact {
	idx := make(map[string]Contact, len(contacts))
	for _, c := range contacts {
		if _, seen := idx[c.ID]; seen {
			continue
		}
		idx[c.ID] = c
	}
	return idx
}
