package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencarelabs/clinicore/internal/pkg/errcode"
	"github.com/opencarelabs/clinicore/internal/pkg/response"
	"github.com/opencarelabs/clinicore/internal/service"
)

type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

type documentCreateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *DocumentHandler) Create(c *gin.Context) {
	var req documentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	meta, _, err := h.documents.Create(c.Request.Context(), req.Title, req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, meta)
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, errcode.ErrUploadFailed, "open upload failed")
		return
	}
	defer file.Close()
	meta, _, err := h.documents.CreateFromUpload(c.Request.Context(), fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, meta)
}

func (h *DocumentHandler) List(c *gin.Context) {
	metas, err := h.documents.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": metas})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
