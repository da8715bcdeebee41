package mongodb

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"time"

	"billsync/core/port/out"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionBodies = "email_bodies"

	// Bodies below this size are stored uncompressed.
	compressionThreshold = 1024
)

// BodyArchiveAdapter implements out.BodyArchive using MongoDB. Documents are
// keyed by email id and overwritten on re-sync, so archiving is idempotent.
type BodyArchiveAdapter struct {
	collection *mongo.Collection
}

// NewBodyArchiveAdapter creates a new body archive adapter.
func NewBodyArchiveAdapter(db *mongo.Database) *BodyArchiveAdapter {
	return &BodyArchiveAdapter{
		collection: db.Collection(collectionBodies),
	}
}

var _ out.BodyArchive = (*BodyArchiveAdapter)(nil)

// EnsureIndexes creates the unique email id index.
func (a *BodyArchiveAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "archived_at", Value: 1}},
		},
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

type bodyDocument struct {
	EmailID      string    `bson:"email_id"`
	Body         []byte    `bson:"body"`
	IsCompressed bool      `bson:"is_compressed"`
	OriginalSize int64     `bson:"original_size"`
	ArchivedAt   time.Time `bson:"archived_at"`
}

// Store upserts the decoded plain-text body for one message.
func (a *BodyArchiveAdapter) Store(ctx context.Context, emailID, body string) error {
	data := []byte(body)
	doc := bodyDocument{
		EmailID:      emailID,
		Body:         data,
		OriginalSize: int64(len(data)),
		ArchivedAt:   time.Now().UTC(),
	}

	if len(data) > compressionThreshold {
		compressed, err := compress(data)
		if err != nil {
			return fmt.Errorf("failed to compress body: %w", err)
		}
		doc.Body = compressed
		doc.IsCompressed = true
	}

	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"email_id": emailID}

	if _, err := a.collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("failed to archive body: %w", err)
	}
	return nil
}

// Get retrieves an archived body, or "" when none exists.
func (a *BodyArchiveAdapter) Get(ctx context.Context, emailID string) (string, error) {
	var doc bodyDocument
	err := a.collection.FindOne(ctx, bson.M{"email_id": emailID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", nil
		}
		return "", fmt.Errorf("failed to get archived body: %w", err)
	}

	if !doc.IsCompressed {
		return string(doc.Body), nil
	}
	data, err := decompress(doc.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decompress body: %w", err)
	}
	return string(data), nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
