package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talentbridge/aptitude-backend/internal/model"
	"github.com/talentbridge/aptitude-backend/internal/service"
	"github.com/talentbridge/aptitude-backend/internal/store"
)

type fakeInserter struct {
	fail    bool
	records []model.SessionRecord
	ids     []uuid.UUID
}

func (f *fakeInserter) Insert(ctx context.Context, record model.SessionRecord) (uuid.UUID, error) {
	if f.fail {
		return uuid.Nil, errors.New("connection refused")
	}
	id := uuid.New()
	f.records = append(f.records, record)
	f.ids = append(f.ids, id)
	return id, nil
}

func newReplayFixture(t *testing.T, inserter ResultInserter) (*ReplayWorker, *store.Fallback, string) {
	t.Helper()
	dir := t.TempDir()
	fallback := store.NewFallback(filepath.Join(dir, "results"), filepath.Join(dir, "resumes"), zerolog.Nop())
	attachments := service.NewAttachmentStore(filepath.Join(dir, "uploads"), 1<<20)
	w := NewReplayWorker(inserter, attachments, fallback, zerolog.Nop())
	return w, fallback, dir
}

func sampleRecord(score int) model.SessionRecord {
	one := 1
	return model.SessionRecord{
		Answers: model.AnswerVector{&one},
		Score:   score,
		Batch:   model.BatchIntermediate,
		Meta:    model.SessionMeta{Reason: model.TerminationManual},
	}
}

func TestReplayPromotesRecords(t *testing.T) {
	inserter := &fakeInserter{}
	w, fallback, _ := newReplayFixture(t, inserter)

	id1, err := fallback.SaveRecord(sampleRecord(60))
	require.NoError(t, err)
	id2, err := fallback.SaveRecord(sampleRecord(70))
	require.NoError(t, err)

	w.replayAll(context.Background())

	assert.Len(t, inserter.records, 2)

	// Local copies are gone after promotion.
	for _, id := range []string{id1, id2} {
		_, err := fallback.GetRecord(id)
		assert.ErrorIs(t, err, store.ErrNotFound)
	}

	ids, err := fallback.ListIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestReplayKeepsRecordsWhilePrimaryDown(t *testing.T) {
	inserter := &fakeInserter{fail: true}
	w, fallback, _ := newReplayFixture(t, inserter)

	id, err := fallback.SaveRecord(sampleRecord(60))
	require.NoError(t, err)

	w.replayAll(context.Background())

	// Still retrievable locally, nothing promoted.
	_, err = fallback.GetRecord(id)
	assert.NoError(t, err)
	assert.Empty(t, inserter.records)
}

func TestReplayMovesAttachments(t *testing.T) {
	inserter := &fakeInserter{}
	w, fallback, dir := newReplayFixture(t, inserter)

	id, err := fallback.SaveRecord(sampleRecord(60))
	require.NoError(t, err)
	require.NoError(t, fallback.SaveAttachment(id, &model.Attachment{Name: "resume.pdf", Data: []byte("cv")}))

	w.replayAll(context.Background())

	require.Len(t, inserter.ids, 1)
	newID := inserter.ids[0].String()

	// The resume now lives in the uploads dir under the primary id.
	data, err := os.ReadFile(filepath.Join(dir, "uploads", newID+"_resume.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []byte("cv"), data)

	// And the fallback copy is gone.
	paths, err := fallback.Attachments(id)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestReplayNoopOnEmptyStore(t *testing.T) {
	inserter := &fakeInserter{}
	w, _, _ := newReplayFixture(t, inserter)

	w.replayAll(context.Background())
	assert.Empty(t, inserter.records)
}
