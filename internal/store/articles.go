package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Article is a stored news row. Optional columns map to pointers so a
// missing value round-trips as nil rather than "".
type Article struct {
	ID        int64
	Portal    string
	URL       string
	Title     *string
	Content   *string
	Topic     *string
	PubDate   *string
	CreatedAt string
}

// Incoming is a candidate row before normalization. Paired fields express
// precedence: Portal over Source, Content over Summary, Topic over Keyword,
// PublishedAt over PubDateRaw.
type Incoming struct {
	URL         string
	Title       string
	Content     string
	Summary     string
	Portal      string
	Source      string
	Topic       string
	Keyword     string
	PublishedAt *time.Time
	PubDateRaw  string
}

func (in Incoming) normalize() (portal, content, topic, pubDate string) {
	portal = in.Portal
	if portal == "" {
		portal = in.Source
	}
	if portal == "" {
		portal = "unknown"
	}
	content = in.Content
	if content == "" {
		content = in.Summary
	}
	topic = in.Topic
	if topic == "" {
		topic = in.Keyword
	}
	if in.PublishedAt != nil {
		pubDate = in.PublishedAt.Format(time.RFC3339)
	} else {
		pubDate = in.PubDateRaw
	}
	return portal, content, topic, pubDate
}

// nullable maps "" to NULL so optional columns stay distinguishable.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// InsertArticle stores one article, ignoring duplicate URLs. Returns true
// when a row was actually written.
func (s *Store) InsertArticle(portal, url, title, content, topic, pubDate string) (bool, error) {
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO news (portal, url, title, content, topic, pub_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		portal, url, nullable(title), nullable(content), nullable(topic), nullable(pubDate))
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}
	return n > 0, nil
}

// InsertBatch normalizes and stores a batch in one transaction, returning
// the number of rows actually inserted. Items without a URL are dropped.
func (s *Store) InsertBatch(items []Incoming) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO news (portal, url, title, content, topic, pub_date)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, in := range items {
		if strings.TrimSpace(in.URL) == "" {
			continue
		}
		portal, content, topic, pubDate := in.normalize()
		res, err := stmt.Exec(portal, in.URL,
			nullable(in.Title), nullable(content), nullable(topic), nullable(pubDate))
		if err != nil {
			return 0, fmt.Errorf("batch insert %s: %w", in.URL, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	s.logger.Info("batch stored",
		zap.Int("offered", len(items)), zap.Int("inserted", inserted))
	return inserted, nil
}

// Exists reports whether a URL is already stored.
func (s *Store) Exists(url string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM news WHERE url = ?`, url).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check url: %w", err)
	}
	return true, nil
}

const articleColumns = `id, portal, url, title, content, topic, pub_date, created_at`

func scanArticle(row interface{ Scan(...any) error }) (Article, error) {
	var a Article
	err := row.Scan(&a.ID, &a.Portal, &a.URL, &a.Title, &a.Content,
		&a.Topic, &a.PubDate, &a.CreatedAt)
	return a, err
}

// GetByURL fetches one article, or nil when absent.
func (s *Store) GetByURL(url string) (*Article, error) {
	row := s.db.QueryRow(
		`SELECT `+articleColumns+` FROM news WHERE url = ?`, url)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get by url: %w", err)
	}
	return &a, nil
}

func (s *Store) queryArticles(query string, args ...any) ([]Article, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetLatest returns the most recently stored articles, newest first.
func (s *Store) GetLatest(limit int) ([]Article, error) {
	if limit <= 0 {
		limit = 20
	}
	arts, err := s.queryArticles(
		`SELECT `+articleColumns+` FROM news ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("latest: %w", err)
	}
	return arts, nil
}

// GetLatestByTopic returns the newest articles for a topic, optionally
// restricted to one portal.
func (s *Store) GetLatestByTopic(topic string, portal *string, limit int) ([]Article, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + articleColumns + ` FROM news WHERE topic = ?`
	args := []any{topic}
	if portal != nil {
		q += ` AND portal = ?`
		args = append(args, *portal)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	arts, err := s.queryArticles(q, args...)
	if err != nil {
		return nil, fmt.Errorf("latest by topic: %w", err)
	}
	return arts, nil
}

// Count returns the number of stored articles.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM news`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// CountByPortal returns stored article counts keyed by portal.
func (s *Store) CountByPortal() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT portal, COUNT(*) FROM news GROUP BY portal`)
	if err != nil {
		return nil, fmt.Errorf("count by portal: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var portal string
		var n int
		if err := rows.Scan(&portal, &n); err != nil {
			return nil, fmt.Errorf("count by portal: %w", err)
		}
		counts[portal] = n
	}
	return counts, rows.Err()
}

// UpdateTopic sets the topic on one article. The FTS index follows via the
// update trigger.
func (s *Store) UpdateTopic(id int64, topic string) error {
	if _, err := s.db.Exec(`UPDATE news SET topic = ? WHERE id = ?`, topic, id); err != nil {
		return fmt.Errorf("update topic: %w", err)
	}
	return nil
}

// ArticlesWithoutTopic returns rows missing a topic label, for backfill.
func (s *Store) ArticlesWithoutTopic(limit int) ([]Article, error) {
	if limit <= 0 {
		limit = 500
	}
	arts, err := s.queryArticles(
		`SELECT `+articleColumns+` FROM news
		 WHERE topic IS NULL OR topic = '' ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("articles without topic: %w", err)
	}
	return arts, nil
}
