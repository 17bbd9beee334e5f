// Package persist keeps store datasets in PostgreSQL as JSONB documents and
// serves them to the engine as a Loader.
//
// Each entity is one row keyed by (store_id, collection, doc_id). Sales and
// settings are single documents per store.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kiwari-pos/opsdash/internal/engine"
	"github.com/kiwari-pos/opsdash/internal/model"
)

// Schema creates the documents table.
const Schema = `
CREATE TABLE IF NOT EXISTS store_documents (
	store_id   UUID        NOT NULL,
	collection TEXT        NOT NULL,
	doc_id     TEXT        NOT NULL,
	body       JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (store_id, collection, doc_id)
)`

const (
	salesDocID    = "summary"
	settingsDocID = "settings"
)

// ErrUnknownCollection is returned for a row whose collection is not one
// the engine knows.
var ErrUnknownCollection = errors.New("unknown collection")

// DB is the subset of *pgxpool.Pool the store needs.
// Satisfied by *pgxpool.Pool; narrow interface for testability.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store reads and writes store documents.
type Store struct {
	db DB
}

// NewStore creates a Store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the documents table if needed.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Load reads every document of a store. Collections without documents come
// back empty, so a reload clears entities deleted at the source.
func (s *Store) Load(ctx context.Context, storeID uuid.UUID) (engine.Dataset, error) {
	rows, err := s.db.Query(ctx,
		`SELECT collection, doc_id, body FROM store_documents WHERE store_id = $1 ORDER BY collection, updated_at, doc_id`,
		storeID)
	if err != nil {
		return engine.Dataset{}, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	ds := emptyDataset()
	for rows.Next() {
		var collection, docID string
		var body []byte
		if err := rows.Scan(&collection, &docID, &body); err != nil {
			return engine.Dataset{}, fmt.Errorf("scan document: %w", err)
		}
		if err := decodeDocument(&ds, collection, body); err != nil {
			return engine.Dataset{}, fmt.Errorf("document %s/%s: %w", collection, docID, err)
		}
	}
	if err := rows.Err(); err != nil {
		return engine.Dataset{}, fmt.Errorf("iterate documents: %w", err)
	}
	return ds, nil
}

// Loader binds Load to one store.
func (s *Store) Loader(storeID uuid.UUID) engine.Loader {
	return engine.LoaderFunc(func(ctx context.Context) (engine.Dataset, error) {
		return s.Load(ctx, storeID)
	})
}

// Replace overwrites every document of a store with ds in one transaction.
func (s *Store) Replace(ctx context.Context, storeID uuid.UUID, ds engine.Dataset) error {
	docs, err := documents(ds)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM store_documents WHERE store_id = $1`, storeID); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}

	batch := &pgx.Batch{}
	for _, d := range docs {
		batch.Queue(
			`INSERT INTO store_documents (store_id, collection, doc_id, body) VALUES ($1, $2, $3, $4)`,
			storeID, d.collection, d.id, d.body,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert documents: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Stores lists the ids of every store with at least one document.
func (s *Store) Stores(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT store_id FROM store_documents ORDER BY store_id`)
	if err != nil {
		return nil, fmt.Errorf("query stores: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("collect stores: %w", err)
	}
	return ids, nil
}

type document struct {
	collection string
	id         string
	body       []byte
}

func emptyDataset() engine.Dataset {
	return engine.Dataset{
		Orders:        []model.Order{},
		Inventory:     []model.InventoryItem{},
		Customers:     []model.Customer{},
		Notifications: []model.Notification{},
	}
}

// documents flattens ds into rows.
func documents(ds engine.Dataset) ([]document, error) {
	var docs []document
	add := func(c engine.Collection, id string, v any) error {
		body, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", c, id, err)
		}
		docs = append(docs, document{collection: string(c), id: id, body: body})
		return nil
	}

	for _, o := range ds.Orders {
		if err := add(engine.CollectionOrders, o.ID, o); err != nil {
			return nil, err
		}
	}
	for _, it := range ds.Inventory {
		if err := add(engine.CollectionInventory, it.ID, it); err != nil {
			return nil, err
		}
	}
	for _, c := range ds.Customers {
		if err := add(engine.CollectionCustomers, c.ID, c); err != nil {
			return nil, err
		}
	}
	for _, n := range ds.Notifications {
		if err := add(engine.CollectionNotifications, n.ID, n); err != nil {
			return nil, err
		}
	}
	if ds.Sales != nil {
		if err := add(engine.CollectionSales, salesDocID, ds.Sales); err != nil {
			return nil, err
		}
	}
	if ds.Settings != nil {
		if err := add(engine.CollectionSettings, settingsDocID, ds.Settings); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// decodeDocument folds one row into ds.
func decodeDocument(ds *engine.Dataset, collection string, body []byte) error {
	switch engine.Collection(collection) {
	case engine.CollectionOrders:
		return appendDoc(&ds.Orders, body)
	case engine.CollectionInventory:
		return appendDoc(&ds.Inventory, body)
	case engine.CollectionCustomers:
		return appendDoc(&ds.Customers, body)
	case engine.CollectionNotifications:
		return appendDoc(&ds.Notifications, body)
	case engine.CollectionSales:
		ds.Sales = new(model.SalesSummary)
		return json.Unmarshal(body, ds.Sales)
	case engine.CollectionSettings:
		ds.Settings = new(model.Settings)
		return json.Unmarshal(body, ds.Settings)
	}
	return fmt.Errorf("%q: %w", collection, ErrUnknownCollection)
}

func appendDoc[T any](dst *[]T, body []byte) error {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return err
	}
	*dst = append(*dst, v)
	return nil
}
