package mse

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"berza/internal/domain"
)

// The element ids the exchange site uses for the history table and the two
// discovery surfaces.
const (
	historyTableID = "resultsTable"
	dropdownID     = "Code"
	listingTableID = "otherlisting-table"
)

// historyColumns is the number of positional columns in the history table:
// date, last trade price, max, min, avg price, %chg, volume, turnover in
// BEST, total turnover. Six of them are retained.
const historyColumns = 9

// parseHistoryTable extracts the price rows from a symbol-history response
// body. found is false when the page carries no results table at all, which
// the exchange uses to mean "no trading in this range" rather than an error.
// Incomplete rows (missing last trade price, max, or min) are dropped here,
// at the window boundary, because the exchange offers no way to re-query a
// single missing cell later.
func parseHistoryTable(r io.Reader) (points []domain.PricePoint, found bool, err error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, false, fmt.Errorf("parsing html: %w", err)
	}

	table := findElementByID(doc, "table", historyTableID)
	if table == nil {
		return nil, false, nil
	}

	for _, cells := range tableRows(table) {
		if len(cells) != historyColumns {
			// Header, footer, or spacer row.
			continue
		}

		date, ok := domain.ParseTradeDate(cells[0])
		if !ok {
			return nil, true, fmt.Errorf("unparsable trade date %q", cells[0])
		}

		p := domain.PricePoint{
			TradeDate:      date,
			LastTradePrice: domain.ParseDecimal(cells[1]),
			Max:            domain.ParseDecimal(cells[2]),
			Min:            domain.ParseDecimal(cells[3]),
			Volume:         domain.ParseDecimal(cells[6]),
			Turnover:       domain.ParseDecimal(cells[7]),
		}
		if !p.Complete() {
			continue
		}
		points = append(points, p)
	}
	return points, true, nil
}

// parseDropdownCodes extracts the option values of the security dropdown
// from a symbol-history page.
func parseDropdownCodes(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	sel := findElementByID(doc, "select", dropdownID)
	if sel == nil {
		return nil, fmt.Errorf("dropdown %q not found", dropdownID)
	}

	var codes []string
	walk(sel, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "option" {
			return
		}
		if v := attr(n, "value"); v != "" {
			codes = append(codes, v)
		}
	})
	return codes, nil
}

// parseListingCodes extracts the first-column symbols from an issuer listing
// table. A page without the table yields no codes and no error.
func parseListingCodes(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	table := findElementByID(doc, "table", listingTableID)
	if table == nil {
		return nil, nil
	}

	var codes []string
	for _, cells := range tableRows(table) {
		if len(cells) == 0 {
			continue
		}
		if sym := strings.TrimSpace(cells[0]); sym != "" {
			codes = append(codes, sym)
		}
	}
	return codes, nil
}

// ---------------------------------------------------------------------------
// Small DOM helpers on top of x/net/html
// ---------------------------------------------------------------------------

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// findElementByID returns the first element with the given tag name and id.
func findElementByID(root *html.Node, tag, id string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == tag && attr(n, "id") == id {
			found = n
		}
	})
	return found
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// tableRows collects the cell texts of every tr in a table. Rows made of th
// cells come back empty and are filtered by the callers' width checks.
func tableRows(table *html.Node) [][]string {
	var rows [][]string
	walk(table, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "tr" {
			return
		}
		var cells []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "td" {
				cells = append(cells, nodeText(c))
			}
		}
		rows = append(rows, cells)
	})
	return rows
}

// nodeText concatenates all text content under n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return strings.TrimSpace(sb.String())
}
