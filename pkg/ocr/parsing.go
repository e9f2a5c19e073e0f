package ocr

import (
	"regexp"
	"strconv"
	"strings"
)

// Candidates may appear as "NT$15,000", "15000元" or a bare digit group on
// turnover screenshots. Groups shorter than 4 digits without comma grouping
// are ignored; they are usually dates, counts or times.
var amountRE = regexp.MustCompile(`(?:NT\$|NTD|\$)?\s*([0-9]{1,3}(?:,[0-9]{3})+|[0-9]{4,9})\s*(?:元)?`)

// maxPlausible bounds accepted amounts; a daily turnover above this is OCR noise.
const maxPlausible = 100_000_000

// FindAmounts returns every digit group in text that could be a turnover
// amount, comma grouping removed.
func FindAmounts(text string) []int64 {
	var out []int64
	for _, m := range amountRE.FindAllStringSubmatch(text, -1) {
		raw := strings.ReplaceAll(m[1], ",", "")
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 || v > maxPlausible {
			continue
		}
		out = append(out, v)
	}
	return out
}

// BestAmount picks the candidate most likely to be the reported turnover:
// the largest plausible value, since the total dominates line items on these
// screenshots.
func BestAmount(candidates []int64) (int64, bool) {
	var best int64
	for _, c := range candidates {
		if c > best {
			best = c
		}
	}
	return best, best > 0
}
