package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/mflow/pkg/models"
	"gopkg.in/yaml.v3"
)

const (
	// TasksFileName is the meeting task collection inside the base directory.
	TasksFileName = "tasks.yaml"
	tasksLockName = ".tasks.lock"
	fileVersion   = "1.0"
)

// TasksFile represents the top-level structure of tasks.yaml.
type TasksFile struct {
	Version string               `yaml:"version"`
	Tasks   []models.MeetingTask `yaml:"tasks"`
}

// TaskStore loads and saves the whole meeting task collection.
type TaskStore interface {
	LoadTasks() ([]models.MeetingTask, error)
	SaveTasks(tasks []models.MeetingTask) error
	LockPath() string
}

type fileTaskStore struct {
	basePath string
}

// NewTaskStore creates a TaskStore backed by tasks.yaml in the given base
// directory.
func NewTaskStore(basePath string) TaskStore {
	return &fileTaskStore{basePath: basePath}
}

func (s *fileTaskStore) filePath() string {
	return filepath.Join(s.basePath, TasksFileName)
}

// LockPath is the advisory lock file guarding tasks.yaml.
func (s *fileTaskStore) LockPath() string {
	return filepath.Join(s.basePath, tasksLockName)
}

// LoadTasks reads tasks.yaml, keeping the stored order. A missing file is an
// empty collection. Participants recorded without a file selection get the
// task defaults.
func (s *fileTaskStore) LoadTasks() ([]models.MeetingTask, error) {
	var file TasksFile
	if err := readYAML(s.filePath(), &file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.MeetingTask{}, nil
		}
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	if file.Tasks == nil {
		file.Tasks = []models.MeetingTask{}
	}
	for i := range file.Tasks {
		for j := range file.Tasks[i].Participants {
			if file.Tasks[i].Participants[j].Files.Kind == "" {
				file.Tasks[i].Participants[j].Files.Kind = models.FilesDefault
			}
		}
	}
	return file.Tasks, nil
}

func (s *fileTaskStore) SaveTasks(tasks []models.MeetingTask) error {
	if tasks == nil {
		tasks = []models.MeetingTask{}
	}
	file := TasksFile{Version: fileVersion, Tasks: tasks}
	if err := writeYAML(s.basePath, s.filePath(), file); err != nil {
		return fmt.Errorf("saving tasks: %w", err)
	}
	return nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeYAML marshals v and replaces path through a temporary file so a crash
// mid-write never leaves a truncated collection behind.
func writeYAML(dir, path string, v any) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing file: %w", err)
	}
	return nil
}
