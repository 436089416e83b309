package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencarelabs/clinicore/internal/fhir"
	"github.com/opencarelabs/clinicore/internal/model"
	"github.com/opencarelabs/clinicore/internal/pkg/errcode"
	"github.com/opencarelabs/clinicore/internal/pkg/response"
)

type FHIRHandler struct{}

func NewFHIRHandler() *FHIRHandler {
	return &FHIRHandler{}
}

type toFHIRRequest struct {
	Structured *model.ClinicalRecord `json:"structured"`
}

// ToFHIR maps an already-extracted record to a bundle. Pure transform, no
// model call.
func (h *FHIRHandler) ToFHIR(c *gin.Context) {
	var req toFHIRRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Structured == nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	response.Success(c, gin.H{"fhir": fhir.MapRecord(req.Structured)})
}
