package completor

import (
	"strings"

	"github.com/smallbiznis/factuur/internal/config"
	"github.com/smallbiznis/factuur/internal/invoice/domain"
)

// completeCustomer normalizes the buyer block before anything else reads it:
// personal data is stripped when policy forbids forwarding it, and the email
// is sanitized into the single bare address the bookkeeping API accepts.
func completeCustomer(inv *domain.Invoice, policy config.CompletionPolicy, msgs *domain.MessageCollector) {
	if !policy.SendCustomer && !inv.Customer.IsBusiness() {
		fictionalize(&inv.Customer, policy)
		return
	}
	sanitizeEmail(&inv.Customer, policy, msgs)
}

// fictionalize strips everything that identifies a private person. Business
// customers never reach this path.
func fictionalize(c *domain.Customer, policy config.CompletionPolicy) {
	c.FullName = ""
	c.Address = ""
	c.PostalCode = ""
	c.City = ""
	c.Telephone = ""
	c.Email = policy.EmailIfEmpty
	// Never update an existing relation with placeholder data.
	c.OverwriteIfExists = 0
}

// sanitizeEmail reduces whatever the webshop delivered to one bare address.
// The API tolerates an absent email field but rejects an empty value, so an
// empty result is replaced by the configured placeholder.
func sanitizeEmail(c *domain.Customer, policy config.CompletionPolicy, msgs *domain.MessageCollector) {
	email := strings.TrimSpace(c.Email)

	// Keep the first address of a joined list.
	if idx := strings.IndexAny(email, ",;"); idx >= 0 {
		email = strings.TrimSpace(email[:idx])
	}

	// Strip a "Display Name <addr>" wrapper.
	if open := strings.IndexByte(email, '<'); open >= 0 {
		if close := strings.IndexByte(email[open:], '>'); close > 0 {
			email = strings.TrimSpace(email[open+1 : open+close])
		}
	}

	if email == "" {
		email = policy.EmailIfEmpty
		msgs.AddNotice(domain.CodeEmptyEmailReplaced, "customer",
			"customer email was empty; replaced with %s", email)
	}
	c.Email = email
}
