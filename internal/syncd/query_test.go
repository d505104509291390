package syncd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWhereClauseDefaultExcludesTombstones(t *testing.T) {
	where, args := whereClause("t1", ListOptions{})
	require.Equal(t, "tenant_id = ? AND expires_at IS NULL", where)
	require.Equal(t, []any{"t1"}, args)
}

func TestWhereClauseIncludeDeleted(t *testing.T) {
	where, args := whereClause("t1", ListOptions{IncludeDeleted: true})
	require.Equal(t, "tenant_id = ?", where)
	require.Equal(t, []any{"t1"}, args)
}

func TestWhereClausePathPrefixAndContains(t *testing.T) {
	where, args := whereClause("t1", ListOptions{PathPrefix: "docs/", PathContains: "notes"})
	require.Equal(t, "tenant_id = ? AND path LIKE ? AND path LIKE ? AND expires_at IS NULL", where)
	require.Equal(t, []any{"t1", "docs/%", "%notes%"}, args)
}

func TestWhereClauseExtensionSet(t *testing.T) {
	where, args := whereClause("t1", ListOptions{Extensions: []string{"png", "jpg"}})
	require.Equal(t, "tenant_id = ? AND extension IN (?,?) AND expires_at IS NULL", where)
	require.Equal(t, []any{"t1", "png", "jpg"}, args)
}

func TestWhereClauseContentContainsExcludesBinary(t *testing.T) {
	where, args := whereClause("t1", ListOptions{ContentContains: "recipe"})
	require.Equal(t, "tenant_id = ? AND content ILIKE ? AND is_binary = false AND expires_at IS NULL", where)
	require.Equal(t, []any{"t1", "%recipe%"}, args)
}

func TestWhereClauseIsBinary(t *testing.T) {
	b := true
	where, args := whereClause("t1", ListOptions{IsBinary: &b})
	require.Equal(t, "tenant_id = ? AND is_binary = ? AND expires_at IS NULL", where)
	require.Equal(t, []any{"t1", true}, args)
}

func TestListOptionsNormalize(t *testing.T) {
	o := ListOptions{}
	o.Normalize()
	require.Equal(t, 100, o.Limit)
	require.Equal(t, 0, o.Offset)

	o = ListOptions{Limit: 5000, Offset: -1}
	o.Normalize()
	require.Equal(t, 1000, o.Limit)
	require.Equal(t, 0, o.Offset)

	o = ListOptions{Limit: 10, Offset: 20}
	o.Normalize()
	require.Equal(t, 10, o.Limit)
	require.Equal(t, 20, o.Offset)
}

func TestRebindSQL(t *testing.T) {
	require.Equal(t, "SELECT * FROM files WHERE a = $1 AND b = $2",
		rebindSQL("SELECT * FROM files WHERE a = ? AND b = ?"))
}
