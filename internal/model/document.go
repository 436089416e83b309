package model

type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content,omitempty"`
	Embedding  []float32 `json:"-"`
	EmbedModel string    `json:"embed_model,omitempty"`
	EmbedDim   int       `json:"embed_dim,omitempty"`
	Ctime      int64     `json:"ctime"`
}

// DocumentMeta is the list/create view of a document: no content, no
// embedding.
type DocumentMeta struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Ctime int64  `json:"ctime"`
}

func (d *Document) Meta() DocumentMeta {
	return DocumentMeta{ID: d.ID, Title: d.Title, Ctime: d.Ctime}
}

// DocumentEmbedding is the slim projection the retrieval scan works on.
type DocumentEmbedding struct {
	DocumentID string    `json:"document_id"`
	Embedding  []float32 `json:"embedding"`
	Ctime      int64     `json:"ctime"`
}
