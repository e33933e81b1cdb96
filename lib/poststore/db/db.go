package db

import (
	"context"
	"database/sql"

	_ "embed"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Post struct {
	ID            string
	Text          string
	AuthorName    sql.NullString
	AuthorUrl     sql.NullString
	Url           sql.NullString
	ContentHash   string
	Timestamp     sql.NullInt64
	LikesCount    int64
	CommentsCount int64
	SharesCount   int64
	Images        sql.NullString
	Title         sql.NullString
	Price         sql.NullString
	Location      sql.NullString
	CreatedAt     int64
}

type Comment struct {
	ID         string
	PostID     string
	AuthorName sql.NullString
	AuthorUrl  sql.NullString
	Text       string
	LikesCount int64
	Timestamp  sql.NullInt64
	CreatedAt  int64
}
