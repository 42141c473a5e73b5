package mongodb

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"sync_server/core/port/out"
	"sync_server/pkg/apperr"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// =============================================================================
// MongoDB Payload Adapter
// =============================================================================

const (
	collectionPayloads = "email_payloads"

	// Compression threshold - only compress if content is larger than this
	compressionThreshold = 1024 // 1KB
)

// PayloadAdapter implements out.PayloadRepository using MongoDB. It holds
// the provider-opaque part of a message: raw body plus header and
// native-property blobs. One document per email, replaced on re-sync.
type PayloadAdapter struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewPayloadAdapter creates a new MongoDB payload adapter.
func NewPayloadAdapter(db *mongo.Database) *PayloadAdapter {
	collection := db.Collection(collectionPayloads)
	return &PayloadAdapter{
		db:         db,
		collection: collection,
	}
}

// EnsureIndexes creates necessary indexes for the collection.
func (a *PayloadAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "account_id", Value: 1}},
		},
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// =============================================================================
// Document Model
// =============================================================================

// payloadDocument represents the MongoDB document structure.
type payloadDocument struct {
	EmailID   string `bson:"email_id"`
	AccountID string `bson:"account_id"`

	// Content (potentially compressed)
	Body             []byte `bson:"body"`
	InternetHeaders  []byte `bson:"internet_headers,omitempty"`
	NativeProperties []byte `bson:"native_properties,omitempty"`
	IsCompressed     bool   `bson:"is_compressed"`

	// Size info
	OriginalSize   int64 `bson:"original_size"`
	CompressedSize int64 `bson:"compressed_size"`

	SavedAt time.Time `bson:"saved_at"`
}

// =============================================================================
// Operations
// =============================================================================

// Save stores the payload document, replacing any previous one for the
// same email.
func (a *PayloadAdapter) Save(ctx context.Context, payload *out.EmailPayload) error {
	doc, err := a.toDocument(payload)
	if err != nil {
		return fmt.Errorf("failed to convert payload to document: %w", err)
	}

	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"email_id": payload.EmailID}

	_, err = a.collection.ReplaceOne(ctx, filter, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to save payload: %w", err)
	}

	return nil
}

// Get retrieves the payload for one email.
func (a *PayloadAdapter) Get(ctx context.Context, emailID string) (*out.EmailPayload, error) {
	var doc payloadDocument
	filter := bson.M{"email_id": emailID}

	err := a.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("email payload")
		}
		return nil, fmt.Errorf("failed to get payload: %w", err)
	}

	return a.toEntity(&doc)
}

// =============================================================================
// Conversion Helpers
// =============================================================================

func (a *PayloadAdapter) toDocument(payload *out.EmailPayload) (*payloadDocument, error) {
	bodyBytes := []byte(payload.Body)
	headerBytes := []byte(payload.InternetHeaders)
	propsBytes := []byte(payload.NativeProperties)
	originalSize := int64(len(bodyBytes) + len(headerBytes) + len(propsBytes))

	isCompressed := false
	compressedSize := originalSize

	// Compress if content is large enough
	if originalSize > compressionThreshold {
		compressedBody, err := compress(bodyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to compress body: %w", err)
		}
		compressedHeaders, err := compress(headerBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to compress headers: %w", err)
		}
		compressedProps, err := compress(propsBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to compress native properties: %w", err)
		}

		bodyBytes = compressedBody
		headerBytes = compressedHeaders
		propsBytes = compressedProps
		isCompressed = true
		compressedSize = int64(len(bodyBytes) + len(headerBytes) + len(propsBytes))
	}

	return &payloadDocument{
		EmailID:          payload.EmailID,
		AccountID:        payload.AccountID.String(),
		Body:             bodyBytes,
		InternetHeaders:  headerBytes,
		NativeProperties: propsBytes,
		IsCompressed:     isCompressed,
		OriginalSize:     originalSize,
		CompressedSize:   compressedSize,
		SavedAt:          time.Now().UTC(),
	}, nil
}

func (a *PayloadAdapter) toEntity(doc *payloadDocument) (*out.EmailPayload, error) {
	bodyBytes := doc.Body
	headerBytes := doc.InternetHeaders
	propsBytes := doc.NativeProperties

	// Decompress if needed
	if doc.IsCompressed {
		var err error
		bodyBytes, err = decompress(doc.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress body: %w", err)
		}
		headerBytes, err = decompress(doc.InternetHeaders)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress headers: %w", err)
		}
		propsBytes, err = decompress(doc.NativeProperties)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress native properties: %w", err)
		}
	}

	accountID, err := uuid.Parse(doc.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse account id: %w", err)
	}

	return &out.EmailPayload{
		EmailID:          doc.EmailID,
		AccountID:        accountID,
		Body:             string(bodyBytes),
		InternetHeaders:  json.RawMessage(headerBytes),
		NativeProperties: json.RawMessage(propsBytes),
	}, nil
}

// =============================================================================
// Compression Helpers
// =============================================================================

func compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)

	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

// =============================================================================
// Interface Compliance
// =============================================================================

var _ out.PayloadRepository = (*PayloadAdapter)(nil)
