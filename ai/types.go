package ai

import "encoding/json"

// PageRange identifies a contiguous, inclusive range of document pages.
// The zero value means "all pages".
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// IsZero reports whether the range covers the whole document.
func (p PageRange) IsZero() bool {
	return p.Start == 0 && p.End == 0
}

// SplitPageRanges partitions totalPages into inclusive ranges of at most
// rangeSize pages each, starting at page 1. A document that fits in a single
// range yields one zero range so single-range processing stays whole-document.
func SplitPageRanges(totalPages, rangeSize int) []PageRange {
	if rangeSize <= 0 || totalPages <= rangeSize {
		return []PageRange{{}}
	}
	var ranges []PageRange
	for start := 1; start <= totalPages; start += rangeSize {
		end := start + rangeSize - 1
		if end > totalPages {
			end = totalPages
		}
		ranges = append(ranges, PageRange{Start: start, End: end})
	}
	return ranges
}

// LayoutBlock is one positioned text region recognized on a page.
type LayoutBlock struct {
	Page int     `json:"page"`
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
}

// LayoutResult is the output of optical recognition: plain text plus the
// positioned blocks it was assembled from.
type LayoutResult struct {
	Text   string        `json:"text"`
	Blocks []LayoutBlock `json:"blocks,omitempty"`
	Pages  int           `json:"pages"`
}

// MergeLayouts combines per-range results into a single document-order
// result. Ranges must be supplied in page order.
func MergeLayouts(results []*LayoutResult) *LayoutResult {
	merged := &LayoutResult{}
	for _, res := range results {
		if res == nil {
			continue
		}
		if merged.Text != "" && res.Text != "" {
			merged.Text += "\n"
		}
		merged.Text += res.Text
		merged.Blocks = append(merged.Blocks, res.Blocks...)
		merged.Pages += res.Pages
	}
	return merged
}

// LayoutJSON renders the layout blocks as JSON for persistence. Returns an
// empty string when there are no blocks.
func (l *LayoutResult) LayoutJSON() string {
	if l == nil || len(l.Blocks) == 0 {
		return ""
	}
	data, err := json.Marshal(l.Blocks)
	if err != nil {
		return ""
	}
	return string(data)
}
