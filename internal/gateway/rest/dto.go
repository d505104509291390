package rest

import (
	"time"

	"github.com/jinzhu/copier"

	"github.com/Laisky/syncd/internal/syncd"
)

// fileDTO is the response envelope of spec §6: summary fields on every
// response, plus Content for single-file GET and ExpiresAt for
// tombstones in listings.
type fileDTO struct {
	Path      string     `json:"path"`
	Hash      string     `json:"hash"`
	Size      int64      `json:"size"`
	Extension string     `json:"extension"`
	IsBinary  bool       `json:"isBinary"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Content   *string    `json:"content,omitempty"`
}

// toDTO projects a FileRecord into its response shape, grounded on
// this codebase's copier-based projection idiom (teacher's
// internal/web GraphQL model layer uses the same library for the same
// purpose: copy matching fields, hand-fill the rest).
func toDTO(rec *syncd.FileRecord, includeContent bool) fileDTO {
	var dto fileDTO
	_ = copier.Copy(&dto, rec)
	dto.Content = nil
	if includeContent {
		content := rec.Content
		dto.Content = &content
	}
	return dto
}

func toDTOList(recs []*syncd.FileRecord) []fileDTO {
	out := make([]fileDTO, len(recs))
	for i, rec := range recs {
		out[i] = toDTO(rec, false)
	}
	return out
}
