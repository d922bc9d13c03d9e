package catalog

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/pavelanni/exambank/internal/model"
)

// ErrAlreadyImported is returned by ImportFile when the file was imported
// before, changed or not.
var ErrAlreadyImported = errors.New("file already imported")

// ParseType maps the labels used by generators and hand-written files onto
// question types. Unknown labels are returned unchanged so that validation
// rejects them.
func ParseType(label string) model.QuestionType {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "multiple-choice", "multiple choice", "mcq", "multiple_choice":
		return model.TypeMultipleChoice
	case "true-false", "true/false", "tf", "true_false", "boolean":
		return model.TypeTrueFalse
	case "fill-blank", "fill in the blank", "fill-in-the-blank", "fill_blank":
		return model.TypeFillBlank
	default:
		return model.QuestionType(label)
	}
}

// ParseDifficulty lower-cases a difficulty label.
func ParseDifficulty(label string) model.Difficulty {
	return model.Difficulty(strings.ToLower(strings.TrimSpace(label)))
}

// Parse decodes a question file. The format is picked by extension: .yaml
// and .yml are YAML, everything else JSON. Unknown fields are errors.
func Parse(name string, data []byte) ([]model.Question, error) {
	var items []model.QuestionImport
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&items); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&items); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}

	qs := make([]model.Question, len(items))
	for i, it := range items {
		qs[i] = model.Question{
			Stem:               it.Stem,
			Options:            it.Options,
			CorrectAnswerIndex: it.CorrectAnswerIndex,
			Explanation:        it.Explanation,
			Type:               ParseType(string(it.Type)),
			Difficulty:         ParseDifficulty(string(it.Difficulty)),
			Marks:              it.Marks,
			Topic:              it.Topic,
			Approved:           it.Approved,
		}
	}
	return qs, nil
}

// Import validates a parsed batch and stores it. A single bad record
// rejects the file.
func (s *Service) Import(name string, data []byte) ([]model.Question, error) {
	qs, err := Parse(name, data)
	if err != nil {
		return nil, err
	}
	if err := ValidateBatch(qs); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	now := s.now().UTC()
	for i := range qs {
		qs[i].ID = uuid.NewString()
		qs[i].CreatedAt = now
	}
	if err := s.repo.InsertQuestions(qs); err != nil {
		return nil, fmt.Errorf("insert questions from %s: %w", name, err)
	}
	return qs, nil
}

// ImportFile imports a question file from disk once.
func (s *Service) ImportFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	qs, err := s.ImportOnce(path, data)
	return len(qs), err
}

// ImportOnce imports data under name unless the ledger already records it.
// Names already recorded are skipped with ErrAlreadyImported; changed
// content under a known name is not re-imported because that would
// duplicate its questions.
func (s *Service) ImportOnce(name string, data []byte) ([]model.Question, error) {
	hash := sha256sum(data)
	if s.imports != nil {
		stored, err := s.imports.GetImportedFileHash(name)
		if err != nil {
			return nil, fmt.Errorf("check import status for %s: %w", name, err)
		}
		if stored == hash {
			slog.Info("questions file unchanged, skipping", "name", name)
			return nil, ErrAlreadyImported
		}
		if stored != "" {
			slog.Warn("questions file changed since last import, skipping to avoid duplicates", "name", name)
			return nil, ErrAlreadyImported
		}
	}

	qs, err := s.Import(name, data)
	if err != nil {
		return qs, err
	}
	if s.imports != nil {
		if err := s.imports.SetImportedFileHash(name, hash); err != nil {
			return qs, fmt.Errorf("record import for %s: %w", name, err)
		}
	}
	slog.Info("imported questions", "name", name, "count", len(qs))
	return qs, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
