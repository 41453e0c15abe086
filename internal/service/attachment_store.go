package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/talentbridge/aptitude-backend/internal/model"
)

// ErrFileTooLarge is returned when an attachment exceeds the limit.
var ErrFileTooLarge = errors.New("file too large")

// AttachmentStore keeps resume attachments for results written to the
// primary store. Files are named <resultID>_<originalName> so they can
// be resolved later from the id alone, without an index.
type AttachmentStore struct {
	dir      string
	maxBytes int64
}

// NewAttachmentStore creates an AttachmentStore rooted at dir.
func NewAttachmentStore(dir string, maxBytes int64) *AttachmentStore {
	return &AttachmentStore{dir: dir, maxBytes: maxBytes}
}

// Save writes the attachment keyed by the owning result id.
func (s *AttachmentStore) Save(resultID string, att *model.Attachment) error {
	if s.maxBytes > 0 && int64(len(att.Data)) > s.maxBytes {
		return fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, len(att.Data), s.maxBytes)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	dest := filepath.Join(s.dir, resultID+"_"+filepath.Base(att.Name))
	if err := os.WriteFile(dest, att.Data, 0o644); err != nil {
		return fmt.Errorf("write attachment: %w", err)
	}
	return nil
}

// Find returns the stored attachment paths for a result id.
func (s *AttachmentStore) Find(resultID string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), resultID+"_") {
			paths = append(paths, filepath.Join(s.dir, e.Name()))
		}
	}
	return paths, nil
}
