package rest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Laisky/syncd/internal/syncd"
)

func TestToDTOOmitsContentUnlessRequested(t *testing.T) {
	rec := &syncd.FileRecord{
		Path: "a.md", Hash: syncd.ComputeHash("hi"), Size: 2,
		Extension: "md", Content: "hi", CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}

	summary := toDTO(rec, false)
	require.Nil(t, summary.Content)
	require.Equal(t, "a.md", summary.Path)

	full := toDTO(rec, true)
	require.NotNil(t, full.Content)
	require.Equal(t, "hi", *full.Content)
}

func TestToDTOListProjection(t *testing.T) {
	recs := []*syncd.FileRecord{
		{Path: "a.md"}, {Path: "b.png", IsBinary: true},
	}
	dtos := toDTOList(recs)
	require.Len(t, dtos, 2)
	require.Equal(t, "a.md", dtos[0].Path)
	require.True(t, dtos[1].IsBinary)
	require.Nil(t, dtos[0].Content)
}
