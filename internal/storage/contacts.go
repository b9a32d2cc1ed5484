package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/mflow/pkg/models"
)

// ContactsFileName is the contact directory inside the base directory.
const ContactsFileName = "contacts.yaml"

// ContactsFile represents the top-level structure of contacts.yaml.
type ContactsFile struct {
	Version  string           `yaml:"version"`
	Contacts []models.Contact `yaml:"contacts"`
}

// ContactStore loads and saves the whole contact directory.
type ContactStore interface {
	LoadContacts() ([]models.Contact, error)
	SaveContacts(contacts []models.Contact) error
}

type fileContactStore struct {
	basePath string
}

// NewContactStore creates a ContactStore backed by contacts.yaml in the given
// base directory.
func NewContactStore(basePath string) ContactStore {
	return &fileContactStore{basePath: basePath}
}

func (s *fileContactStore) filePath() string {
	return filepath.Join(s.basePath, ContactsFileName)
}

// LoadContacts reads contacts.yaml. A missing file is an empty directory.
func (s *fileContactStore) LoadContacts() ([]models.Contact, error) {
	var file ContactsFile
	if err := readYAML(s.filePath(), &file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Contact{}, nil
		}
		return nil, fmt.Errorf("loading contacts: %w", err)
	}
	if file.Contacts == nil {
		file.Contacts = []models.Contact{}
	}
	return file.Contacts, nil
}

func (s *fileContactStore) SaveContacts(contacts []models.Contact) error {
	if contacts == nil {
		contacts = []models.Contact{}
	}
	file := ContactsFile{Version: fileVersion, Contacts: contacts}
	if err := writeYAML(s.basePath, s.filePath(), file); err != nil {
		return fmt.Errorf("saving contacts: %w", err)
	}
	return nil
}
