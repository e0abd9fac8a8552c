package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	vatratedomain "github.com/smallbiznis/factuur/internal/vatrate/domain"
)

// listVatRates exposes the rate table for debugging lookups.
func (s *Server) listVatRates(c *gin.Context) {
	req := vatratedomain.ListRequest{
		CountryCode: strings.ToUpper(strings.TrimSpace(c.Query("country"))),
		Kind:        vatratedomain.Kind(c.Query("kind")),
		SortBy:      c.Query("sort_by"),
		OrderBy:     c.Query("order_by"),
	}

	rates, err := s.vatRateSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vat_rates": rates})
}
