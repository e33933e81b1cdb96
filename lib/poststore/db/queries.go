package db

import (
	"context"
	"database/sql"
)

const createPost = `
INSERT INTO posts (
    id, text, author_name, author_url, url, content_hash, timestamp,
    likes_count, comments_count, shares_count, images, title, price,
    location, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreatePostParams struct {
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

func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) error {
	_, err := q.db.ExecContext(ctx, createPost,
		arg.ID, arg.Text, arg.AuthorName, arg.AuthorUrl, arg.Url,
		arg.ContentHash, arg.Timestamp, arg.LikesCount, arg.CommentsCount,
		arg.SharesCount, arg.Images, arg.Title, arg.Price, arg.Location,
		arg.CreatedAt,
	)
	return err
}

const createComment = `
INSERT INTO comments (
    id, post_id, author_name, author_url, text, likes_count, timestamp,
    created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateCommentParams struct {
	ID         string
	PostID     string
	AuthorName sql.NullString
	AuthorUrl  sql.NullString
	Text       string
	LikesCount int64
	Timestamp  sql.NullInt64
	CreatedAt  int64
}

func (q *Queries) CreateComment(ctx context.Context, arg CreateCommentParams) error {
	_, err := q.db.ExecContext(ctx, createComment,
		arg.ID, arg.PostID, arg.AuthorName, arg.AuthorUrl, arg.Text,
		arg.LikesCount, arg.Timestamp, arg.CreatedAt,
	)
	return err
}

const postColumns = `id, text, author_name, author_url, url, content_hash,
    timestamp, likes_count, comments_count, shares_count, images, title,
    price, location, created_at`

func scanPost(row *sql.Row) (Post, error) {
	var p Post
	err := row.Scan(
		&p.ID, &p.Text, &p.AuthorName, &p.AuthorUrl, &p.Url, &p.ContentHash,
		&p.Timestamp, &p.LikesCount, &p.CommentsCount, &p.SharesCount,
		&p.Images, &p.Title, &p.Price, &p.Location, &p.CreatedAt,
	)
	return p, err
}

const getPostByUrl = `SELECT ` + postColumns + ` FROM posts WHERE url = ? LIMIT 1`

func (q *Queries) GetPostByUrl(ctx context.Context, url string) (Post, error) {
	return scanPost(q.db.QueryRowContext(ctx, getPostByUrl, url))
}

const getPostByContentHash = `SELECT ` + postColumns + ` FROM posts WHERE content_hash = ? LIMIT 1`

func (q *Queries) GetPostByContentHash(ctx context.Context, hash string) (Post, error) {
	return scanPost(q.db.QueryRowContext(ctx, getPostByContentHash, hash))
}

const listPosts = `SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC, id`

func (q *Queries) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := q.db.QueryContext(ctx, listPosts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		err := rows.Scan(
			&p.ID, &p.Text, &p.AuthorName, &p.AuthorUrl, &p.Url, &p.ContentHash,
			&p.Timestamp, &p.LikesCount, &p.CommentsCount, &p.SharesCount,
			&p.Images, &p.Title, &p.Price, &p.Location, &p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

const listCommentsForPost = `
SELECT id, post_id, author_name, author_url, text, likes_count, timestamp, created_at
FROM comments WHERE post_id = ? ORDER BY rowid
`

func (q *Queries) ListCommentsForPost(ctx context.Context, postID string) ([]Comment, error) {
	rows, err := q.db.QueryContext(ctx, listCommentsForPost, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		err := rows.Scan(
			&c.ID, &c.PostID, &c.AuthorName, &c.AuthorUrl, &c.Text,
			&c.LikesCount, &c.Timestamp, &c.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

const countPosts = `SELECT COUNT(*) FROM posts`

func (q *Queries) CountPosts(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countPosts).Scan(&count)
	return count, err
}

const deleteAllPosts = `DELETE FROM posts`

// comments go with their posts through ON DELETE CASCADE
func (q *Queries) DeleteAllPosts(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllPosts)
	return err
}
