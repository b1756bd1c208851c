package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dfryer1193/blogapi/blog/domain"
	"github.com/dfryer1193/blogapi/shared/db"
)

var _ domain.BlogRepository = (*SQLBlogRepository)(nil)

// SQLBlogRepository implements domain.BlogRepository with portable SQL that runs
// unchanged on SQLite and MySQL.
type SQLBlogRepository struct {
	db *sql.DB
}

// NewBlogRepository creates a new SQLBlogRepository from a standard sql.DB
func NewBlogRepository(sqlDB *sql.DB) *SQLBlogRepository {
	return &SQLBlogRepository{
		db: sqlDB,
	}
}

const blogColumns = `id, title, author, cover_image, content, created_at, updated_at`

const insertBlogQuery = `
	INSERT INTO blogs (title, author, cover_image, content, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
`

// CreateBlog inserts p and returns the id assigned by the database.
func (r *SQLBlogRepository) CreateBlog(ctx context.Context, p *domain.BlogPost) (int64, error) {
	if p == nil {
		return 0, fmt.Errorf("blog cannot be nil")
	}

	executor := db.GetExecutor(ctx, r.db)
	res, err := executor.ExecContext(ctx, insertBlogQuery,
		p.Title,
		p.Author,
		p.CoverImage,
		p.Content,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert blog: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted blog id: %w", err)
	}

	return id, nil
}

const getBlogQuery = `SELECT ` + blogColumns + ` FROM blogs WHERE id = ?`

// GetBlog retrieves a single blog by id, or domain.ErrBlogNotFound.
func (r *SQLBlogRepository) GetBlog(ctx context.Context, id int64) (*domain.BlogPost, error) {
	var row blogRow
	err := db.GetExecutor(ctx, r.db).QueryRowContext(ctx, getBlogQuery, id).Scan(row.dest()...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("blog %d: %w", id, domain.ErrBlogNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get blog: %w", err)
	}

	return row.toDomain(), nil
}

// UpdateBlog writes the non-nil fields of changes plus updated_at, which the
// caller must set. Column names come from a fixed list; only values are bound.
func (r *SQLBlogRepository) UpdateBlog(ctx context.Context, id int64, changes domain.BlogChanges) error {
	if changes.Empty() {
		return fmt.Errorf("no fields to update")
	}
	if changes.UpdatedAt.IsZero() {
		return fmt.Errorf("updated_at is required")
	}

	var sets []string
	var args []any

	if changes.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *changes.Title)
	}
	if changes.Author != nil {
		sets = append(sets, "author = ?")
		args = append(args, *changes.Author)
	}
	if changes.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *changes.Content)
	}
	if changes.CoverImage != nil {
		sets = append(sets, "cover_image = ?")
		args = append(args, *changes.CoverImage)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, changes.UpdatedAt, id)

	query := "UPDATE blogs SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	res, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update blog: %w", err)
	}

	return requireAffected(res, id)
}

const deleteBlogQuery = `DELETE FROM blogs WHERE id = ?`

// DeleteBlog removes the row with the given id, or returns domain.ErrBlogNotFound.
func (r *SQLBlogRepository) DeleteBlog(ctx context.Context, id int64) error {
	res, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, deleteBlogQuery, id)
	if err != nil {
		return fmt.Errorf("failed to delete blog: %w", err)
	}

	return requireAffected(res, id)
}

// searchFilter builds the WHERE clause shared by the list and count queries so
// both always see the same rows. LOWER is Unicode-aware on both backends; the
// sqlite package replaces SQLite's ASCII-only builtin.
func searchFilter(search string) (string, []any) {
	search = strings.TrimSpace(search)
	if search == "" {
		return "", nil
	}
	pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
	return ` WHERE LOWER(title) LIKE ? ESCAPE '!' OR LOWER(author) LIKE ? ESCAPE '!'`, []any{pattern, pattern}
}

// escapeLike makes LIKE metacharacters in s match literally under ESCAPE '!'.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

// ListBlogs returns one page of blogs, newest first.
func (r *SQLBlogRepository) ListBlogs(ctx context.Context, q domain.ListQuery) ([]*domain.BlogPost, error) {
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	where, args := searchFilter(q.Search)
	query := `SELECT ` + blogColumns + ` FROM blogs` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Offset)

	rows, err := db.GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list blogs: %w", err)
	}
	defer rows.Close()

	blogs := make([]*domain.BlogPost, 0, q.Limit)
	for rows.Next() {
		var row blogRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("failed to scan blog row: %w", err)
		}
		blogs = append(blogs, row.toDomain())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blog rows: %w", err)
	}

	return blogs, nil
}

// CountBlogs counts the blogs matching search.
func (r *SQLBlogRepository) CountBlogs(ctx context.Context, search string) (int, error) {
	where, args := searchFilter(search)

	var total int
	err := db.GetExecutor(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM blogs`+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count blogs: %w", err)
	}

	return total, nil
}

const listCoverImagesQuery = `SELECT cover_image FROM blogs WHERE cover_image IS NOT NULL`

// ListCoverImages returns the cover image reference of every blog that has one.
func (r *SQLBlogRepository) ListCoverImages(ctx context.Context) ([]domain.AssetRef, error) {
	rows, err := db.GetExecutor(ctx, r.db).QueryContext(ctx, listCoverImagesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list cover images: %w", err)
	}
	defer rows.Close()

	var refs []domain.AssetRef
	for rows.Next() {
		var ref domain.AssetRef
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("failed to scan cover image: %w", err)
		}
		if !ref.IsZero() {
			refs = append(refs, ref)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cover images: %w", err)
	}

	return refs, nil
}

// RunInTx runs fn inside a database transaction carried by its context.
func (r *SQLBlogRepository) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.RunInTransaction(ctx, r.db, fn)
}

func requireAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("blog %d: %w", id, domain.ErrBlogNotFound)
	}
	return nil
}

// blogRow is a private struct used to scan database rows
type blogRow struct {
	ID         int64           `db:"id"`
	Title      string          `db:"title"`
	Author     string          `db:"author"`
	CoverImage domain.AssetRef `db:"cover_image"`
	Content    string          `db:"content"`
	CreatedAt  sql.NullTime    `db:"created_at"`
	UpdatedAt  sql.NullTime    `db:"updated_at"`
}

// dest returns scan destinations in blogColumns order.
func (br *blogRow) dest() []any {
	return []any{
		&br.ID,
		&br.Title,
		&br.Author,
		&br.CoverImage,
		&br.Content,
		&br.CreatedAt,
		&br.UpdatedAt,
	}
}

// toDomain converts a blogRow to a domain.BlogPost, handling nullable times
func (br *blogRow) toDomain() *domain.BlogPost {
	post := &domain.BlogPost{
		ID:         br.ID,
		Title:      br.Title,
		Author:     br.Author,
		CoverImage: br.CoverImage,
		Content:    br.Content,
	}

	if br.CreatedAt.Valid {
		post.CreatedAt = br.CreatedAt.Time.UTC()
	}
	if br.UpdatedAt.Valid {
		post.UpdatedAt = br.UpdatedAt.Time.UTC()
	}

	return post
}
