package fixtures

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/docview/internal/models"
)

// Seed is the YAML fixture file: the documents the server starts with and
// the canned answers it gives.
type Seed struct {
	Documents     []SeedDocument    `yaml:"documents"`
	Answers       map[string]string `yaml:"answers"`
	DefaultAnswer string            `yaml:"default_answer"`
}

// SeedDocument is one document entry. Optional fields stay nil when absent
// so the client sees them missing.
type SeedDocument struct {
	ID           int         `yaml:"id"`
	Title        string      `yaml:"title"`
	Subject      string      `yaml:"subject"`
	Content      *string     `yaml:"content"`
	Summary      *string     `yaml:"summary"`
	UploadedDate *time.Time  `yaml:"uploaded_date"`
	Queries      []SeedQuery `yaml:"queries"`
}

// SeedQuery is a query already present on a document, newest first.
type SeedQuery struct {
	Question  string    `yaml:"question"`
	Answer    string    `yaml:"answer"`
	Timestamp time.Time `yaml:"timestamp"`
}

// Validate validates the seed.
func (s *Seed) Validate() error {
	seen := make(map[int]struct{}, len(s.Documents))
	for i := range s.Documents {
		d := &s.Documents[i]
		if err := d.Validate(); err != nil {
			return fmt.Errorf("documents[%d]: %w", i, err)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("documents[%d]: duplicate id %d", i, d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}

// Validate validates a single document entry.
func (d *SeedDocument) Validate() error {
	if err := validation.ValidateStruct(d,
		validation.Field(&d.ID, validation.Required, validation.Min(1)),
		validation.Field(&d.Title, validation.Required),
	); err != nil {
		return err
	}
	for i := range d.Queries {
		q := &d.Queries[i]
		if err := validation.ValidateStruct(q,
			validation.Field(&q.Question, validation.Required),
			validation.Field(&q.Timestamp, validation.Required),
		); err != nil {
			return fmt.Errorf("queries[%d]: %w", i, err)
		}
	}
	return nil
}

// LoadSeed reads and validates a seed file. Unlike config files, seeds are
// not env-expanded: document text routinely contains "$".
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixtures: read seed %s: %w", path, err)
	}
	seed := &Seed{}
	if err := yaml.Unmarshal(data, seed); err != nil {
		return nil, fmt.Errorf("fixtures: parse seed %s: %w", path, err)
	}
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("fixtures: invalid seed %s: %w", path, err)
	}
	return seed, nil
}

// ReadSeed is like LoadSeed but treats a missing file as an empty seed.
func ReadSeed(path string) (*Seed, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Seed{}, nil
	}
	return LoadSeed(path)
}

// Checksum returns a stable digest of a document entry, used to skip
// unchanged documents on resync.
func (d *SeedDocument) Checksum() string {
	data, err := yaml.Marshal(d)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func (d *SeedDocument) row() DocumentRow {
	return DocumentRow{
		ID:           d.ID,
		Title:        d.Title,
		Subject:      d.Subject,
		Content:      d.Content,
		Summary:      d.Summary,
		Checksum:     d.Checksum(),
		UploadedDate: d.UploadedDate,
	}
}

func (d *SeedDocument) queries() []models.Query {
	out := make([]models.Query, 0, len(d.Queries))
	for _, q := range d.Queries {
		out = append(out, models.Query{
			Question:  q.Question,
			Answer:    q.Answer,
			Timestamp: models.NewTimestamp(q.Timestamp),
		})
	}
	return out
}
