package validation

import (
	"strings"
)

// NormalizePhone убирает из контактного идентификатора пробелы, скобки,
// дефисы и точки, оставляя цифры и ведущий плюс.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ContactIdentifierCandidates возвращает варианты записи контактного
// идентификатора для поиска пользователя: как введено, нормализованный,
// с кодом страны и без него. Кандидаты идут от точного к
// эвристическому; дубликаты убраны.
func ContactIdentifierCandidates(raw, countryPrefix string) []string {
	trimmed := strings.TrimSpace(raw)
	normalized := NormalizePhone(trimmed)

	candidates := []string{trimmed, normalized}

	digits := strings.TrimPrefix(countryPrefix, "+")
	if normalized != "" && digits != "" {
		switch {
		case strings.HasPrefix(normalized, countryPrefix):
			rest := strings.TrimPrefix(normalized, countryPrefix)
			candidates = append(candidates, rest, digits+rest, "8"+rest)
		case strings.HasPrefix(normalized, digits):
			rest := strings.TrimPrefix(normalized, digits)
			candidates = append(candidates, countryPrefix+rest, rest)
		case strings.HasPrefix(normalized, "8"):
			rest := strings.TrimPrefix(normalized, "8")
			candidates = append(candidates, countryPrefix+rest, digits+rest)
		default:
			candidates = append(candidates, countryPrefix+normalized, digits+normalized)
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
