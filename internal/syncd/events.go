package syncd

import "time"

// EventName is an outbound event name, shared verbatim between the
// channel gateway (C5) and the request/response gateway's broadcast
// path (C6), per spec §4.6's dual-path parity requirement.
type EventName string

const (
	EventFileCreated  EventName = "file-created"
	EventFileModified EventName = "file-modified"
	EventFileDeleted  EventName = "file-deleted"
	EventFileRenamed  EventName = "file-renamed"
)

// Event is a named broadcast payload. Building it once here, shared by
// both gateways, is what guarantees dual-path parity: a PUT /files and
// a modified-file channel event that both touch the same record
// produce byte-identical outbound payloads.
type Event struct {
	Name    EventName
	Payload map[string]any
}

// FileCreatedEvent builds the outbound payload for a new or
// resurrected record, per spec §6's outbound payload table.
func FileCreatedEvent(rec *FileRecord) Event {
	return Event{
		Name: EventFileCreated,
		Payload: map[string]any{
			"path":      rec.Path,
			"content":   rec.Content,
			"hash":      rec.Hash,
			"size":      rec.Size,
			"isBinary":  rec.IsBinary,
			"extension": rec.Extension,
			"createdAt": rec.CreatedAt.Format(time.RFC3339),
		},
	}
}

// FileModifiedEvent builds the outbound payload for an in-place
// content change.
func FileModifiedEvent(rec *FileRecord) Event {
	return Event{
		Name: EventFileModified,
		Payload: map[string]any{
			"path":      rec.Path,
			"content":   rec.Content,
			"hash":      rec.Hash,
			"size":      rec.Size,
			"isBinary":  rec.IsBinary,
			"extension": rec.Extension,
			"updatedAt": rec.UpdatedAt.Format(time.RFC3339),
		},
	}
}

// FileDeletedEvent builds the outbound payload for a soft-delete.
func FileDeletedEvent(path string, deletedAt time.Time) Event {
	return Event{
		Name: EventFileDeleted,
		Payload: map[string]any{
			"path":      path,
			"deletedAt": deletedAt.Format(time.RFC3339),
		},
	}
}

// FileRenamedEvent builds the outbound payload for an in-place move.
func FileRenamedEvent(oldPath string, rec *FileRecord) Event {
	return Event{
		Name: EventFileRenamed,
		Payload: map[string]any{
			"oldPath":   oldPath,
			"newPath":   rec.Path,
			"content":   rec.Content,
			"hash":      rec.Hash,
			"size":      rec.Size,
			"isBinary":  rec.IsBinary,
			"extension": rec.Extension,
			"updatedAt": rec.UpdatedAt.Format(time.RFC3339),
		},
	}
}
