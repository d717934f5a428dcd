package grouping

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	mlRe    = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*ML`)
	literRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*L(?:ITER|ITRO)?S?`)
)

// packageAlias maps raw label substrings to a canonical package name.
// Order is load-bearing: specific variants must be matched before the
// generic families they contain ("SLEEK CAN" before "CAN", "REFPET"
// before "PET", "MINI" cans before plain cans). Tests pin this order.
type packageAlias struct {
	substrings []string
	canonical  string
}

var packageAliases = []packageAlias{
	{[]string{"SLEEK"}, "Sleek Can"},
	{[]string{"MINI LATA", "MINI CAN"}, "Mini Can"},
	{[]string{"REFPET", "REF PET"}, "Refpet"},
	{[]string{"LATA", "ALUMINIO", "ALUMINUM", "CAN"}, "Can"},
	{[]string{"KS"}, "KS"},
	{[]string{"LS"}, "LS"},
	{[]string{"VIDRO", "GLASS"}, "Glass"},
	{[]string{"BAG IN BOX", "BIB"}, "BIB"},
	{[]string{"PET"}, "Pet"},
}

// NormalizePackage maps a raw package label to its canonical package
// name. Diacritics are folded before matching so labels from mixed
// sources ("Vidro Não Retornável", "VIDRO NAO RET") land on the same
// canonical name. Returns false for labels that match no known family.
func NormalizePackage(raw string) (string, bool) {
	pkg := strings.ToUpper(strings.TrimSpace(foldDiacritics(raw)))
	if pkg == "" {
		return "", false
	}
	for _, alias := range packageAliases {
		for _, sub := range alias.substrings {
			if strings.Contains(pkg, sub) {
				return alias.canonical, true
			}
		}
	}
	return "", false
}

// foldDiacritics strips combining marks via NFD decomposition.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// ParseSizeLiters converts a raw size string to liters.
// Accepts "310ml", "310 ML", "1.5L", "1,5 litros", bare numbers
// (interpreted as liters) and ranges like "5-18L", which resolve to the
// range midpoint. Returns false when no size can be extracted.
func ParseSizeLiters(raw string) (float64, bool) {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	if s == "" {
		return 0, false
	}

	// Range: midpoint of both ends.
	if idx := strings.IndexByte(s, '-'); idx > 0 {
		lo, okLo := ParseSizeLiters(s[:idx])
		hi, okHi := ParseSizeLiters(s[idx+1:])
		if okLo && okHi {
			return (lo + hi) / 2, true
		}
	}

	if m := mlRe.FindStringSubmatch(s); m != nil {
		ml, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err == nil {
			return ml / 1000.0, true
		}
	}
	if m := literRe.FindStringSubmatch(s); m != nil {
		l, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err == nil {
			return l, true
		}
	}
	if v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil {
		return v, true
	}
	return 0, false
}

// TypeKey builds the canonical product-type key from a canonical
// package name and a size in liters, e.g. "Pet|0.51".
func TypeKey(pkg string, sizeLiters float64) string {
	size := strconv.FormatFloat(round2(sizeLiters), 'f', -1, 64)
	return pkg + "|" + size
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
