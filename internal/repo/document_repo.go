package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/opencarelabs/clinicore/internal/model"
	appErr "github.com/opencarelabs/clinicore/internal/pkg/errors"
)

type DocumentRepo struct {
	db *sqlx.DB
}

func NewDocumentRepo(db *sqlx.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":          doc.ID,
		"title":       doc.Title,
		"content":     doc.Content,
		"embedding":   pgvector.NewVector(doc.Embedding),
		"embed_model": doc.EmbedModel,
		"embed_dim":   doc.EmbedDim,
		"ctime":       doc.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	return err
}

func (r *DocumentRepo) List(ctx context.Context) ([]model.Document, error) {
	where := map[string]interface{}{
		"_orderby": "ctime asc, id asc",
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, []string{"id", "title", "ctime"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(sqlStr), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Ctime); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (*model.Document, error) {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildSelect("documents", where,
		[]string{"id", "title", "content", "embedding", "embed_model", "embed_dim", "ctime"})
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, r.db.Rebind(sqlStr), args...)
	var doc model.Document
	var emb pgvector.Vector
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &emb, &doc.EmbedModel, &doc.EmbedDim, &doc.Ctime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	doc.Embedding = emb.Slice()
	return &doc, nil
}

func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildDelete("documents", where)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// ListEmbeddings returns the retrieval projection for every embedded
// document, in creation order so the similarity tie-break is stable.
func (r *DocumentRepo) ListEmbeddings(ctx context.Context) ([]model.DocumentEmbedding, error) {
	const query = `
		SELECT id, embedding, ctime
		FROM documents
		WHERE embedding IS NOT NULL
		ORDER BY ctime ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.DocumentEmbedding, 0)
	for rows.Next() {
		var item model.DocumentEmbedding
		var emb pgvector.Vector
		if err := rows.Scan(&item.DocumentID, &emb, &item.Ctime); err != nil {
			return nil, err
		}
		item.Embedding = emb.Slice()
		items = append(items, item)
	}
	return items, rows.Err()
}

// StoredEmbedDim reports the dimensionality already present in the store.
// ok is false when the store holds no embedded documents yet.
func (r *DocumentRepo) StoredEmbedDim(ctx context.Context) (int, bool, error) {
	row := r.db.QueryRowContext(ctx, "SELECT embed_dim FROM documents WHERE embed_dim > 0 ORDER BY ctime ASC LIMIT 1")
	var dim int
	if err := row.Scan(&dim); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return dim, true, nil
}

// ListByEmbedModelNot returns documents whose stored embedding was produced
// by a different model than the configured one. Used by the reindex job.
func (r *DocumentRepo) ListByEmbedModelNot(ctx context.Context, embedModel string, limit int) ([]model.Document, error) {
	const query = `
		SELECT id, title, content, ctime
		FROM documents
		WHERE embed_model != ?
		ORDER BY ctime ASC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), embedModel, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.Ctime); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// UpdateEmbedding rewrites a document's embedding during a model
// migration. Documents are otherwise immutable.
func (r *DocumentRepo) UpdateEmbedding(ctx context.Context, id string, embedding []float32, embedModel string) error {
	where := map[string]interface{}{
		"id": id,
	}
	update := map[string]interface{}{
		"embedding":   pgvector.NewVector(embedding),
		"embed_model": embedModel,
		"embed_dim":   len(embedding),
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) Count(ctx context.Context) (int, error) {
	row := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM documents")
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
