package store

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Strategy selects how a search query is interpreted.
type Strategy string

const (
	// StrategyAuto honors quoted phrases and ANDs the remaining tokens.
	StrategyAuto Strategy = "auto"
	// StrategyAll requires every token.
	StrategyAll Strategy = "all"
	// StrategyAny matches any token.
	StrategyAny Strategy = "any"
	// StrategyPhrase treats the whole query as one phrase.
	StrategyPhrase Strategy = "phrase"
	// StrategyNear requires tokens within a small distance of each other.
	StrategyNear Strategy = "near"
)

// ParseStrategy maps a user-supplied name to a Strategy, defaulting to auto.
func ParseStrategy(name string) Strategy {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case StrategyAll, StrategyAny, StrategyPhrase, StrategyNear:
		return Strategy(strings.ToLower(strings.TrimSpace(name)))
	default:
		return StrategyAuto
	}
}

var phrasePattern = regexp.MustCompile(`"([^"]*)"`)

// parseQuery splits a raw query into quoted phrases and bare tokens.
func parseQuery(raw string) (phrases, tokens []string) {
	rest := phrasePattern.ReplaceAllStringFunc(raw, func(m string) string {
		inner := strings.TrimSpace(strings.Trim(m, `"`))
		if inner != "" {
			phrases = append(phrases, inner)
		}
		return " "
	})
	for _, t := range strings.Fields(rest) {
		tokens = append(tokens, t)
	}
	return phrases, tokens
}

// ftsQuote makes a term safe for an FTS5 MATCH expression.
func ftsQuote(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}

// buildMatch renders the FTS5 MATCH expression for a query and strategy.
// Empty queries return "".
func buildMatch(raw string, strategy Strategy, nearDistance int) string {
	phrases, tokens := parseQuery(raw)
	all := append(append([]string{}, phrases...), tokens...)
	if len(all) == 0 {
		return ""
	}
	if nearDistance <= 0 {
		nearDistance = 1
	}

	switch strategy {
	case StrategyPhrase:
		return ftsQuote(strings.TrimSpace(strings.ReplaceAll(raw, `"`, " ")))

	case StrategyAny:
		quoted := make([]string, len(all))
		for i, t := range all {
			quoted[i] = ftsQuote(t)
		}
		return strings.Join(quoted, " OR ")

	case StrategyAll:
		quoted := make([]string, len(all))
		for i, t := range all {
			quoted[i] = ftsQuote(t)
		}
		return strings.Join(quoted, " AND ")

	case StrategyNear:
		if len(all) == 1 {
			return ftsQuote(all[0])
		}
		quoted := make([]string, len(all))
		for i, t := range all {
			quoted[i] = ftsQuote(t)
		}
		return fmt.Sprintf("NEAR(%s, %d)", strings.Join(quoted, " "), nearDistance)

	default: // auto
		var parts []string
		for _, p := range phrases {
			parts = append(parts, ftsQuote(p))
		}
		for _, t := range tokens {
			parts = append(parts, ftsQuote(t))
		}
		return strings.Join(parts, " AND ")
	}
}

// Search runs a full-text query, newest articles first. When FTS5 is absent
// or rejects the query it falls back to LIKE matching over title and content.
func (s *Store) Search(raw string, strategy Strategy, nearDistance, limit int) ([]Article, error) {
	if limit <= 0 {
		limit = 20
	}
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	if s.ftsAvailable {
		match := buildMatch(raw, strategy, nearDistance)
		if match == "" {
			return nil, nil
		}
		arts, err := s.queryArticles(
			`SELECT n.id, n.portal, n.url, n.title, n.content, n.topic,
			        n.pub_date, n.created_at
			 FROM news n JOIN news_fts f ON n.id = f.rowid
			 WHERE news_fts MATCH ?
			 ORDER BY n.id DESC LIMIT ?`, match, limit)
		if err == nil {
			return arts, nil
		}
		// A syntactically hostile query can fail MATCH; answer it with the
		// substring path instead of erroring out.
		s.logger.Warn("fts query failed, using substring fallback",
			zap.String("query", raw), zap.Error(err))
	}

	return s.searchLike(raw, strategy, limit)
}

func (s *Store) searchLike(raw string, strategy Strategy, limit int) ([]Article, error) {
	var terms []string
	if strategy == StrategyPhrase {
		terms = []string{strings.TrimSpace(strings.ReplaceAll(raw, `"`, " "))}
	} else {
		phrases, tokens := parseQuery(raw)
		terms = append(append(terms, phrases...), tokens...)
	}
	if len(terms) == 0 {
		return nil, nil
	}

	// near has no substring analogue; require all terms instead.
	joiner := " AND "
	if strategy == StrategyAny {
		joiner = " OR "
	}

	conds := make([]string, len(terms))
	args := make([]any, 0, 2*len(terms)+1)
	for i, t := range terms {
		conds[i] = `(title LIKE ? OR content LIKE ?)`
		pat := "%" + t + "%"
		args = append(args, pat, pat)
	}
	args = append(args, limit)

	arts, err := s.queryArticles(
		`SELECT `+articleColumns+` FROM news WHERE `+
			strings.Join(conds, joiner)+
			` ORDER BY id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}
	return arts, nil
}
