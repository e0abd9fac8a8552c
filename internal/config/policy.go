package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CompletionPolicy captures the shop-specific rules the completion engine
// consults. Everything here is policy, not something the engine can detect
// from invoice data.
type CompletionPolicy struct {
	// HomeCountry is the seller's establishment country (ISO 3166-1 alpha-2).
	HomeCountry string

	// SendCustomer controls whether personal data of non-business customers
	// may be forwarded to the bookkeeping API.
	SendCustomer bool
	// EmailIfEmpty replaces an empty customer email; the API rejects an
	// empty-but-present email value.
	EmailIfEmpty string

	SellsDigitalServices bool
	SellsVatFreeGoods    bool
	MarginProducts       bool
	ForeignVat           bool
	NationalReversed     bool

	RemoveEmptyShipping bool

	Flatten FlattenPolicy
}

// FlattenPolicy controls how child lines (bundles, variants, options) are
// collapsed into the flat line list.
type FlattenPolicy struct {
	// MaxChildLines is the largest child count that may still be merged into
	// its parent's description.
	MaxChildLines int
	// MinChildLines forces children onto separate lines once reached.
	MinChildLines int
	// MaxMergedTextLength caps the merged description length.
	MaxMergedTextLength int
	// CorrectionMode names how amounts are distributed between parent and
	// children: parent-only, children-only, doubled or additive.
	CorrectionMode string
	// RetainChildPrices keeps child amounts on a merged line instead of
	// discarding them.
	RetainChildPrices bool
}

const (
	CorrectionModeParentOnly   = "parent-only"
	CorrectionModeChildrenOnly = "children-only"
	CorrectionModeDoubled      = "doubled"
	CorrectionModeAdditive     = "additive"
)

func DefaultCompletionPolicy() CompletionPolicy {
	return CompletionPolicy{
		HomeCountry:  "NL",
		SendCustomer: true,
		EmailIfEmpty: "customer@example.org",

		RemoveEmptyShipping: false,

		Flatten: FlattenPolicy{
			MaxChildLines:       3,
			MinChildLines:       10,
			MaxMergedTextLength: 90,
			CorrectionMode:      CorrectionModeChildrenOnly,
			RetainChildPrices:   false,
		},
	}
}

// PolicyHolder exposes the current completion policy and hot-reloads it when
// the backing file changes.
type PolicyHolder struct {
	current atomic.Value // holds CompletionPolicy
}

// NewPolicyHolder reads completion.yml and watches it for changes.
func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("completion")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/factuur/config")
	v.AddConfigPath("/etc/factuur")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FACTUUR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCompletionPolicy()
	v.SetDefault("completion", defaults)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var policy CompletionPolicy
	if err := v.UnmarshalKey("completion", &policy); err != nil {
		return nil, err
	}
	applyPolicyDefaults(&policy)
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CompletionPolicy
		if err := v.UnmarshalKey("completion", &updated); err != nil {
			log.Printf("[completion-policy] reload failed: %v", err)
			return
		}
		applyPolicyDefaults(&updated)
		if err := validatePolicy(updated); err != nil {
			log.Printf("[completion-policy] invalid policy ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[completion-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPolicyHolder wraps a fixed policy, for tests and embedded use.
func NewStaticPolicyHolder(policy CompletionPolicy) *PolicyHolder {
	applyPolicyDefaults(&policy)
	holder := &PolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *PolicyHolder) Get() CompletionPolicy {
	return h.current.Load().(CompletionPolicy)
}

func applyPolicyDefaults(p *CompletionPolicy) {
	defaults := DefaultCompletionPolicy()
	if strings.TrimSpace(p.HomeCountry) == "" {
		p.HomeCountry = defaults.HomeCountry
	}
	p.HomeCountry = strings.ToUpper(strings.TrimSpace(p.HomeCountry))
	if strings.TrimSpace(p.EmailIfEmpty) == "" {
		p.EmailIfEmpty = defaults.EmailIfEmpty
	}
	if p.Flatten.MaxChildLines <= 0 {
		p.Flatten.MaxChildLines = defaults.Flatten.MaxChildLines
	}
	if p.Flatten.MinChildLines <= 0 {
		p.Flatten.MinChildLines = defaults.Flatten.MinChildLines
	}
	if p.Flatten.MaxMergedTextLength <= 0 {
		p.Flatten.MaxMergedTextLength = defaults.Flatten.MaxMergedTextLength
	}
	if strings.TrimSpace(p.Flatten.CorrectionMode) == "" {
		p.Flatten.CorrectionMode = defaults.Flatten.CorrectionMode
	}
}

func validatePolicy(p CompletionPolicy) error {
	if len(p.HomeCountry) != 2 {
		return errors.New("completion.homeCountry must be a 2-letter country code")
	}
	switch p.Flatten.CorrectionMode {
	case CorrectionModeParentOnly, CorrectionModeChildrenOnly, CorrectionModeDoubled, CorrectionModeAdditive:
	default:
		return errors.New("completion.flatten.correctionMode is not a known mode")
	}
	return nil
}
