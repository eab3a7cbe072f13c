package mse

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"berza/internal/util"
)

// SymbolSource produces raw security codes from one part of the exchange
// site. Implementations return codes as published; filtering is applied on
// top by DiscoverCodes.
type SymbolSource interface {
	Codes(ctx context.Context) ([]string, error)
}

// discoveryRetries covers transient site hiccups on the discovery pages.
// History windows deliberately do not retry; a failed window fails the
// security for this batch.
const (
	discoveryRetries    = 3
	discoveryRetryDelay = 2 * time.Second
)

// DropdownSource reads codes from the security dropdown on a symbol-history
// page.
type DropdownSource struct {
	client *Client
	url    string
}

// NewDropdownSource creates a DropdownSource reading the given page.
func NewDropdownSource(client *Client, pageURL string) *DropdownSource {
	return &DropdownSource{client: client, url: pageURL}
}

func (s *DropdownSource) Codes(ctx context.Context) ([]string, error) {
	var codes []string
	err := util.Retry(ctx, discoveryRetries, discoveryRetryDelay, func() error {
		resp, err := s.client.get(ctx, s.url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		codes, err = parseDropdownCodes(resp.Body)
		return err
	})
	return codes, err
}

// ListingTableSource reads codes from the first column of the issuer
// listing table across one or more listing pages. Pages that fail or lack
// the table contribute nothing; an error is returned only if every page
// fails.
type ListingTableSource struct {
	client *Client
	urls   []string
	log    *slog.Logger
}

// NewListingTableSource creates a ListingTableSource over the given pages.
func NewListingTableSource(client *Client, urls []string, log *slog.Logger) *ListingTableSource {
	return &ListingTableSource{client: client, urls: urls, log: log}
}

func (s *ListingTableSource) Codes(ctx context.Context) ([]string, error) {
	var all []string
	var lastErr error
	failed := 0

	for _, u := range s.urls {
		var codes []string
		err := util.Retry(ctx, discoveryRetries, discoveryRetryDelay, func() error {
			resp, err := s.client.get(ctx, u)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			codes, err = parseListingCodes(resp.Body)
			return err
		})
		if err != nil {
			s.log.Warn("listing page failed", "url", u, "error", err)
			failed++
			lastErr = err
			continue
		}
		all = append(all, codes...)
	}

	if failed == len(s.urls) && lastErr != nil {
		return nil, lastErr
	}
	return all, nil
}

// DiscoverCodes runs a source and applies the shared contract: codes
// containing digits are bonds and other non-equity instruments and are
// discarded, and duplicates are removed preserving first-seen order.
func DiscoverCodes(ctx context.Context, src SymbolSource) ([]string, error) {
	raw, err := src.Codes(ctx)
	if err != nil {
		return nil, err
	}
	return FilterCodes(raw), nil
}

// FilterCodes drops codes containing digits and deduplicates the rest,
// preserving order.
func FilterCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	var out []string
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" || hasDigit(code) {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
