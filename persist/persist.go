// Package persist stores one research document per user and reconciles
// competing copies by timestamp.
package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/scoutgraph/scout/errors"
	"github.com/scoutgraph/scout/graph"
)

// Document is the persisted shape of one user's session
type Document struct {
	Nodes          []graph.Node     `json:"nodes"`
	Edges          []graph.Edge     `json:"edges"`
	IdeaNodesArray []graph.IdeaTask `json:"ideaNodesArray"`
	LastUpdated    int64            `json:"lastUpdated"` // epoch milliseconds
}

// NewDocument captures a store snapshot with the current timestamp
func NewDocument(store *graph.Store) Document {
	nodes, edges, tasks := store.Snapshot()
	return Document{
		Nodes:          nodes,
		Edges:          edges,
		IdeaNodesArray: tasks,
		LastUpdated:    time.Now().UnixMilli(),
	}
}

// Apply replaces the store contents with the document's
func (d Document) Apply(store *graph.Store) {
	store.SetNodes(d.Nodes)
	store.SetEdges(d.Edges)
	store.SetIdeaTasks(d.IdeaNodesArray)
}

// Reconcile returns whichever document is newer. Equal timestamps keep
// the local copy.
func Reconcile(local, remote Document) Document {
	if remote.LastUpdated > local.LastUpdated {
		return remote
	}
	return local
}

// Store persists documents in the user_documents table
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewStore creates a document store over an open database
func NewStore(db *sql.DB, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{db: db, logger: logger}
}

// Save writes a user's document. The document body is cleaned of JSON
// nulls before it is stored.
func (s *Store) Save(ctx context.Context, userID string, doc Document) error {
	if userID == "" {
		return errors.NewInvalidRequestError("user id must not be empty")
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal document")
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return errors.Wrap(err, "failed to decode document for cleaning")
	}
	cleaned, err := json.Marshal(CleanData(decoded))
	if err != nil {
		return errors.Wrap(err, "failed to marshal cleaned document")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_documents (user_id, document, last_updated)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			document = excluded.document,
			last_updated = excluded.last_updated
	`, userID, string(cleaned), doc.LastUpdated)
	if err != nil {
		return errors.Wrap(err, "failed to save document")
	}

	s.logger.Debugw("Document saved", "user_id", userID, "last_updated", doc.LastUpdated)
	return nil
}

// Load reads a user's document. A missing row surfaces as ErrNotFound.
func (s *Store) Load(ctx context.Context, userID string) (Document, error) {
	if userID == "" {
		return Document{}, errors.NewInvalidRequestError("user id must not be empty")
	}

	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT document FROM user_documents WHERE user_id = ?
	`, userID).Scan(&raw)
	if err == sql.ErrNoRows {
		return Document{}, errors.NewNotFoundError("document for user %s", userID)
	}
	if err != nil {
		return Document{}, errors.Wrap(err, "failed to load document")
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Document{}, errors.Wrap(err, "failed to unmarshal document")
	}
	return doc, nil
}
