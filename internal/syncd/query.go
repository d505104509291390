package syncd

import (
	"context"
	"strings"

	errors "github.com/Laisky/errors/v2"
)

// ListOptions are the composable filters of spec §4.4.
type ListOptions struct {
	PathPrefix       string
	PathContains     string
	Extensions       []string
	ContentContains  string
	IsBinary         *bool
	IncludeDeleted   bool
	Limit            int
	Offset           int
}

// Normalize clamps Limit/Offset to spec §4.4's bounds.
func (o *ListOptions) Normalize() {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// ListResult is the paginated envelope of spec §4.4.
type ListResult struct {
	Files  []*FileRecord
	Total  int
	Limit  int
	Offset int
}

// whereClause builds a `?`-placeholder WHERE clause and its matching
// arg slice, grounded on internal/mcp/files/service_list.go's
// filter-composition style.
func whereClause(tenantID string, opts ListOptions) (string, []any) {
	clauses := []string{"tenant_id = ?"}
	args := []any{tenantID}

	if opts.PathPrefix != "" {
		clauses = append(clauses, "path LIKE ?")
		args = append(args, opts.PathPrefix+"%")
	}
	if opts.PathContains != "" {
		clauses = append(clauses, "path LIKE ?")
		args = append(args, "%"+opts.PathContains+"%")
	}
	if len(opts.Extensions) > 0 {
		placeholders := make([]string, len(opts.Extensions))
		for i, ext := range opts.Extensions {
			placeholders[i] = "?"
			args = append(args, ext)
		}
		clauses = append(clauses, "extension IN ("+strings.Join(placeholders, ",")+")")
	}
	if opts.ContentContains != "" {
		// Binary exclusion is implicit: searching base64 would be
		// meaningless, per spec §4.4.
		clauses = append(clauses, "content ILIKE ? AND is_binary = false")
		args = append(args, "%"+opts.ContentContains+"%")
	}
	if opts.IsBinary != nil {
		clauses = append(clauses, "is_binary = ?")
		args = append(args, *opts.IsBinary)
	}
	if !opts.IncludeDeleted {
		clauses = append(clauses, "expires_at IS NULL")
	}

	return strings.Join(clauses, " AND "), args
}

// List implements C4's paginated, filtered listing. Fire-and-forget
// cleanup is dispatched before the query runs, per spec §4.4.
func (s *Store) List(ctx context.Context, tenantID string, opts ListOptions) (*ListResult, error) {
	s.CleanupExpired(ctx)
	opts.Normalize()

	where, args := whereClause(tenantID, opts)

	var total int
	countQuery := rebindSQL("SELECT count(*) FROM files WHERE " + where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, errors.Wrap(err, "count files")
	}

	pageQuery := rebindSQL(
		"SELECT " + fileColumns + " FROM files WHERE " + where +
			" ORDER BY path ASC LIMIT ? OFFSET ?")
	pageArgs := append(append([]any{}, args...), opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, pageQuery, pageArgs...)
	if err != nil {
		return nil, errors.Wrap(err, "list files")
	}
	defer rows.Close()

	var files []*FileRecord
	for rows.Next() {
		rec, err := scanFileRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan file row")
		}
		files = append(files, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate file rows")
	}

	return &ListResult{Files: files, Total: total, Limit: opts.Limit, Offset: opts.Offset}, nil
}
