package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	completiondomain "github.com/smallbiznis/factuur/internal/completion/domain"
	invoicedomain "github.com/smallbiznis/factuur/internal/invoice/domain"
)

type completeInvoiceRequest struct {
	Source  string                `json:"source"`
	Invoice invoicedomain.Invoice `json:"invoice"`
}

// completeInvoice runs the completion engine on a raw invoice. Concept
// invoices are a 200: they are valid, best-effort documents with warnings,
// not failures.
func (s *Server) completeInvoice(c *gin.Context) {
	var req completeInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if req.Source == "" {
		req.Source = c.GetHeader(headerSource)
	}

	result, err := s.completionSvc.Complete(c.Request.Context(), req.Invoice, completiondomain.SourceInfo{Shop: req.Source})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
