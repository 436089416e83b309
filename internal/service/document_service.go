package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/opencarelabs/clinicore/internal/ai"
	"github.com/opencarelabs/clinicore/internal/filestore"
	"github.com/opencarelabs/clinicore/internal/model"
	appErr "github.com/opencarelabs/clinicore/internal/pkg/errors"
)

const maxUploadBytes = 10 << 20

type DocumentService struct {
	store    DocumentStore
	gw       Gateway
	files    filestore.Store
	embedDim int
}

// NewDocumentService builds the document service. embedDim pins the
// expected embedding dimensionality; zero means "learn from the store".
func NewDocumentService(store DocumentStore, gw Gateway, files filestore.Store, embedDim int) *DocumentService {
	return &DocumentService{store: store, gw: gw, files: files, embedDim: embedDim}
}

// Create embeds the document synchronously and persists it in a single
// insert: when embedding fails, nothing is stored.
func (s *DocumentService) Create(ctx context.Context, title, content string) (*model.DocumentMeta, ai.Usage, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ai.Usage{}, fmt.Errorf("%w: title is required", appErr.ErrInvalid)
	}
	content, err := cleanInput(content, s.gw.MaxInputChars())
	if err != nil {
		return nil, ai.Usage{}, fmt.Errorf("%w: content is required", appErr.ErrInvalid)
	}

	// Title is mixed into the embedded text to improve recall.
	res, err := s.gw.Embed(ctx, title+"\n"+content, "RETRIEVAL_DOCUMENT")
	if err != nil {
		return nil, ai.Usage{}, err
	}
	if err := s.checkDim(ctx, len(res.Vector)); err != nil {
		return nil, res.Usage, err
	}

	doc := &model.Document{
		ID:         newID(),
		Title:      title,
		Content:    content,
		Embedding:  res.Vector,
		EmbedModel: s.gw.EmbeddingModelName(),
		EmbedDim:   len(res.Vector),
		Ctime:      time.Now().UnixMilli(),
	}
	if err := s.store.Create(ctx, doc); err != nil {
		return nil, res.Usage, err
	}
	logutil.GetLogger(ctx).Info("document created",
		zap.String("id", doc.ID),
		zap.String("title", doc.Title),
		zap.Int("embed_dim", doc.EmbedDim),
	)
	meta := doc.Meta()
	return &meta, res.Usage, nil
}

// CreateFromUpload archives the raw file in the filestore, then indexes its
// text content as a regular document.
func (s *DocumentService) CreateFromUpload(ctx context.Context, filename string, file filestore.ReadSeekCloser, size int64) (*model.DocumentMeta, ai.Usage, error) {
	if size <= 0 || size > maxUploadBytes {
		return nil, ai.Usage{}, fmt.Errorf("%w: invalid upload size", appErr.ErrInvalid)
	}
	base := filepath.Base(filename)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	if title == "" {
		return nil, ai.Usage{}, fmt.Errorf("%w: filename is required", appErr.ErrInvalid)
	}

	key := newID() + strings.ToLower(filepath.Ext(base))
	if s.files != nil {
		if err := s.files.Save(ctx, key, file, size); err != nil {
			return nil, ai.Usage{}, err
		}
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, ai.Usage{}, err
	}
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, ai.Usage{}, err
	}
	return s.Create(ctx, title, string(data))
}

func (s *DocumentService) List(ctx context.Context) ([]model.DocumentMeta, error) {
	docs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	metas := make([]model.DocumentMeta, 0, len(docs))
	for _, doc := range docs {
		metas = append(metas, doc.Meta())
	}
	return metas, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErr.ErrInvalid
	}
	return s.store.Get(ctx, id)
}

func (s *DocumentService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return appErr.ErrInvalid
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("document deleted", zap.String("id", id))
	return nil
}

// checkDim enforces that every stored embedding shares one dimensionality.
// A mismatch against existing documents is a hard migration event handled
// by the reindex job, never by mixing dimensions in the store.
func (s *DocumentService) checkDim(ctx context.Context, dim int) error {
	if dim == 0 {
		return fmt.Errorf("%w: empty embedding", appErr.ErrEmbeddingDim)
	}
	if s.embedDim > 0 && dim != s.embedDim {
		return fmt.Errorf("%w: got %d, configured %d", appErr.ErrEmbeddingDim, dim, s.embedDim)
	}
	stored, ok, err := s.store.StoredEmbedDim(ctx)
	if err != nil {
		return err
	}
	if ok && stored != dim {
		return fmt.Errorf("%w: got %d, store holds %d", appErr.ErrEmbeddingDim, dim, stored)
	}
	return nil
}
