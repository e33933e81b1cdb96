// Package poststore is the record store for extracted feed posts and the
// gate that keeps each logical post from being ingested twice. Identity
// is the canonical post url when one exists, otherwise a content
// fingerprint over (author, text, timestamp).
package poststore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"groupfeed-backend/lib/poststore/db"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("poststore")

type Comment struct {
	AuthorName string
	AuthorUrl  string
	Text       string
	LikesCount int
	Timestamp  time.Time
}

type Post struct {
	Text          string
	AuthorName    string
	AuthorUrl     string
	Url           string
	Timestamp     time.Time
	LikesCount    int
	CommentsCount int
	SharesCount   int
	Images        []string
	Title         string
	Price         string
	Location      string
	Comments      []Comment
}

// Fingerprint is the fallback identity for posts without a stable url:
// two posts with the same author, text and timestamp are the same
// logical post regardless of markup.
func Fingerprint(p Post) string {
	ts := ""
	if !p.Timestamp.IsZero() {
		ts = p.Timestamp.UTC().Format(time.RFC3339)
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", p.AuthorName, p.Text, ts)))
	return hex.EncodeToString(sum[:])
}

type SaveResult int

const (
	SaveSaved SaveResult = iota
	SaveSkipped
)

func (r SaveResult) String() string {
	if r == SaveSaved {
		return "saved"
	}
	return "skipped"
}

type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

// Exists reports whether a stored record matches the post's url (when
// present) or its content fingerprint, checked in that order.
func (s Store) Exists(ctx context.Context, p Post) (bool, error) {
	if p.Url != "" {
		_, err := s.qry.GetPostByUrl(ctx, p.Url)
		if err == nil {
			return true, nil
		}
		if err != sql.ErrNoRows {
			return false, err
		}
	}
	_, err := s.qry.GetPostByContentHash(ctx, Fingerprint(p))
	if err == nil {
		return true, nil
	}
	if err != sql.ErrNoRows {
		return false, err
	}
	return false, nil
}

// Save persists the post together with its comments in one transaction,
// or skips it when its identity is already stored. The existence
// pre-check is backed by unique indexes: losing a check-then-insert race
// surfaces as a constraint violation and is treated as a skip too.
func (s Store) Save(ctx context.Context, p Post) (SaveResult, error) {
	ctx, span := tracer.Start(ctx, "store:Save")
	defer span.End()

	exists, err := s.Exists(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "existence check failed")
		return SaveSkipped, err
	}
	if exists {
		span.AddEvent("duplicate", trace.WithAttributes(
			attribute.String("url", p.Url),
		))
		return SaveSkipped, nil
	}

	res, err := s.insert(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert post")
	}
	return res, err
}

// insert writes the post and its comments in one transaction. The
// existence pre-check is racy by construction; losing the race surfaces
// here as a unique-constraint violation and is treated as a skip.
func (s Store) insert(ctx context.Context, p Post) (SaveResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SaveSkipped, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	now := time.Now().Unix()
	postID := uuid.NewString()
	err = txqry.CreatePost(ctx, db.CreatePostParams{
		ID:            postID,
		Text:          p.Text,
		AuthorName:    nullString(p.AuthorName),
		AuthorUrl:     nullString(p.AuthorUrl),
		Url:           nullString(p.Url),
		ContentHash:   Fingerprint(p),
		Timestamp:     nullTime(p.Timestamp),
		LikesCount:    int64(p.LikesCount),
		CommentsCount: int64(p.CommentsCount),
		SharesCount:   int64(p.SharesCount),
		Images:        encodeImages(p.Images),
		Title:         nullString(p.Title),
		Price:         nullString(p.Price),
		Location:      nullString(p.Location),
		CreatedAt:     now,
	})
	if err != nil {
		if isUniqueViolation(err) {
			slog.DebugContext(ctx, "lost insert race, treating as duplicate", "url", p.Url)
			return SaveSkipped, nil
		}
		return SaveSkipped, err
	}

	for _, c := range p.Comments {
		err := txqry.CreateComment(ctx, db.CreateCommentParams{
			ID:         uuid.NewString(),
			PostID:     postID,
			AuthorName: nullString(c.AuthorName),
			AuthorUrl:  nullString(c.AuthorUrl),
			Text:       c.Text,
			LikesCount: int64(c.LikesCount),
			Timestamp:  nullTime(c.Timestamp),
			CreatedAt:  now,
		})
		if err != nil {
			return SaveSkipped, err
		}
	}

	err = tx.Commit()
	if err != nil {
		return SaveSkipped, err
	}
	return SaveSaved, nil
}

func (s Store) Count(ctx context.Context) (int64, error) {
	return s.qry.CountPosts(ctx)
}

// List returns all stored posts, newest first, with their comments.
func (s Store) List(ctx context.Context) ([]Post, error) {
	rows, err := s.qry.ListPosts(ctx)
	if err != nil {
		return nil, err
	}

	var posts []Post
	for _, r := range rows {
		comments, err := s.qry.ListCommentsForPost(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		p := Post{
			Text:          r.Text,
			AuthorName:    r.AuthorName.String,
			AuthorUrl:     r.AuthorUrl.String,
			Url:           r.Url.String,
			LikesCount:    int(r.LikesCount),
			CommentsCount: int(r.CommentsCount),
			SharesCount:   int(r.SharesCount),
			Images:        decodeImages(r.Images),
			Title:         r.Title.String,
			Price:         r.Price.String,
			Location:      r.Location.String,
		}
		if r.Timestamp.Valid {
			p.Timestamp = time.Unix(r.Timestamp.Int64, 0).UTC()
		}
		for _, c := range comments {
			comment := Comment{
				AuthorName: c.AuthorName.String,
				AuthorUrl:  c.AuthorUrl.String,
				Text:       c.Text,
				LikesCount: int(c.LikesCount),
			}
			if c.Timestamp.Valid {
				comment.Timestamp = time.Unix(c.Timestamp.Int64, 0).UTC()
			}
			p.Comments = append(p.Comments, comment)
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func (s Store) DeleteAll(ctx context.Context) error {
	return s.qry.DeleteAllPosts(ctx)
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func encodeImages(images []string) sql.NullString {
	if len(images) == 0 {
		return sql.NullString{}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

func decodeImages(raw sql.NullString) []string {
	if !raw.Valid {
		return nil
	}
	var images []string
	err := json.Unmarshal([]byte(raw.String), &images)
	if err != nil {
		slog.Warn("failed to decode stored image list", "err", err)
		return nil
	}
	return images
}

// both modernc sqlite and libsql report constraint failures through the
// error message only
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
