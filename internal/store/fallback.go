// Package store implements the local fallback store: self-contained
// JSON record files plus attachment blobs, used whenever the primary
// store is unreachable. There is no index file; records are
// discoverable by id only.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/talentbridge/aptitude-backend/internal/model"
)

// FallbackIDPrefix marks locally issued ids. Primary ids are UUIDs, so
// the two namespaces are disjoint and visually distinguishable.
const FallbackIDPrefix = "local-"

// ErrNotFound is returned when no record exists for an id.
var ErrNotFound = errors.New("record not found")

// fallbackRecord is the on-disk shape: the id embedded alongside the
// record fields so each file is self-describing.
type fallbackRecord struct {
	ID        string    `json:"_id"`
	CreatedAt time.Time `json:"created_at"`
	model.SessionRecord
}

// Fallback writes result records and attachments to the local
// filesystem.
type Fallback struct {
	resultsDir string
	resumesDir string
	log        zerolog.Logger
}

// NewFallback creates a Fallback store rooted at the given dirs.
func NewFallback(resultsDir, resumesDir string, log zerolog.Logger) *Fallback {
	return &Fallback{
		resultsDir: resultsDir,
		resumesDir: resumesDir,
		log:        log.With().Str("component", "fallback_store").Logger(),
	}
}

// NewID issues a fallback id: local-<epochMillis>-<rand 0..9999>.
func NewID() string {
	return fmt.Sprintf("%s%d-%d", FallbackIDPrefix, time.Now().UnixMilli(), rand.Intn(10000))
}

// IsFallbackID reports whether id belongs to the local id namespace.
func IsFallbackID(id string) bool {
	return strings.HasPrefix(id, FallbackIDPrefix)
}

// SaveRecord writes the record as a self-contained JSON file and
// returns the issued id.
func (f *Fallback) SaveRecord(record model.SessionRecord) (string, error) {
	id := NewID()
	if err := f.SaveRecordAs(id, record); err != nil {
		return "", err
	}
	return id, nil
}

// SaveRecordAs writes the record under a caller-chosen id.
func (f *Fallback) SaveRecordAs(id string, record model.SessionRecord) error {
	if err := os.MkdirAll(f.resultsDir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}

	data, err := json.MarshalIndent(fallbackRecord{
		ID:            id,
		CreatedAt:     time.Now().UTC(),
		SessionRecord: record,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	path := f.recordPath(id)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	f.log.Info().Str("id", id).Str("path", path).Msg("Record saved to fallback store")
	return nil
}

// SaveAttachment stores the blob as <id>_<name> in the resumes area so
// it can be resolved later from the id alone.
func (f *Fallback) SaveAttachment(id string, att *model.Attachment) error {
	if err := os.MkdirAll(f.resumesDir, 0o755); err != nil {
		return fmt.Errorf("create resumes dir: %w", err)
	}

	dest := filepath.Join(f.resumesDir, id+"_"+filepath.Base(att.Name))
	if err := os.WriteFile(dest, att.Data, 0o644); err != nil {
		return fmt.Errorf("write attachment: %w", err)
	}
	return nil
}

// GetRecord loads a record by id.
func (f *Fallback) GetRecord(id string) (*model.StoredResult, error) {
	data, err := os.ReadFile(f.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read record: %w", err)
	}

	var rec fallbackRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}

	return &model.StoredResult{
		ID:        rec.ID,
		Record:    rec.SessionRecord,
		Fallback:  true,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// ListIDs returns the ids of all locally stored records.
func (f *Fallback) ListIDs() ([]string, error) {
	entries, err := os.ReadDir(f.resultsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read results dir: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

// Attachments returns the attachment file paths belonging to an id.
func (f *Fallback) Attachments(id string) ([]string, error) {
	entries, err := os.ReadDir(f.resumesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read resumes dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), id+"_") {
			paths = append(paths, filepath.Join(f.resumesDir, e.Name()))
		}
	}
	return paths, nil
}

// Remove deletes a record file. Attachments are left in place; their
// names still resolve through the id embedded in them.
func (f *Fallback) Remove(id string) error {
	if err := os.Remove(f.recordPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove record: %w", err)
	}
	return nil
}

func (f *Fallback) recordPath(id string) string {
	return filepath.Join(f.resultsDir, id+".json")
}
