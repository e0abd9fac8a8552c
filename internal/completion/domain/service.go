package domain

import (
	"context"

	invoicedomain "github.com/smallbiznis/factuur/internal/invoice/domain"
)

// SourceInfo identifies where a raw invoice came from.
type SourceInfo struct {
	// Shop is the integration name, e.g. "woocommerce".
	Shop string `json:"shop"`
}

// Result is a finished completion run: the completed working copy plus every
// diagnostic collected along the way.
type Result struct {
	Invoice  invoicedomain.Invoice   `json:"invoice"`
	Messages []invoicedomain.Message `json:"messages"`
	Concept  bool                    `json:"concept"`
}

// Service runs the completion engine and records an audit trail.
type Service interface {
	Complete(ctx context.Context, raw invoicedomain.Invoice, src SourceInfo) (*Result, error)
}

// Repository persists completion run audit rows.
type Repository interface {
	Create(ctx context.Context, run *CompletionRun) error
}
