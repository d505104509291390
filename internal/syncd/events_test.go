package syncd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileCreatedEventPayload(t *testing.T) {
	now := time.Now().UTC()
	rec := &FileRecord{
		Path: "a.md", Content: "hi", Hash: ComputeHash("hi"), Size: 2,
		Extension: "md", IsBinary: false, CreatedAt: now,
	}

	ev := FileCreatedEvent(rec)
	require.Equal(t, EventFileCreated, ev.Name)
	require.Equal(t, "a.md", ev.Payload["path"])
	require.Equal(t, "hi", ev.Payload["content"])
	require.Equal(t, rec.Hash, ev.Payload["hash"])
	require.Equal(t, now.Format(time.RFC3339), ev.Payload["createdAt"])
	require.NotContains(t, ev.Payload, "updatedAt")
}

func TestFileModifiedEventPayload(t *testing.T) {
	now := time.Now().UTC()
	rec := &FileRecord{Path: "a.md", Content: "v2", Hash: ComputeHash("v2"), Size: 2, UpdatedAt: now}

	ev := FileModifiedEvent(rec)
	require.Equal(t, EventFileModified, ev.Name)
	require.Equal(t, now.Format(time.RFC3339), ev.Payload["updatedAt"])
	require.NotContains(t, ev.Payload, "createdAt")
}

func TestFileDeletedEventPayload(t *testing.T) {
	now := time.Now().UTC()
	ev := FileDeletedEvent("a.md", now)
	require.Equal(t, EventFileDeleted, ev.Name)
	require.Equal(t, "a.md", ev.Payload["path"])
	require.Equal(t, now.Format(time.RFC3339), ev.Payload["deletedAt"])
}

func TestFileRenamedEventPayload(t *testing.T) {
	now := time.Now().UTC()
	rec := &FileRecord{Path: "b.md", Content: "A", Hash: ComputeHash("A"), Size: 1, UpdatedAt: now}

	ev := FileRenamedEvent("a.md", rec)
	require.Equal(t, EventFileRenamed, ev.Name)
	require.Equal(t, "a.md", ev.Payload["oldPath"])
	require.Equal(t, "b.md", ev.Payload["newPath"])
	require.Equal(t, "A", ev.Payload["content"])
}
