package cache

import (
	"crypto/md5"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"visual-nuts/models"
)

var ErrNotFound = errors.New("analysis not found")

type AnalysisCache struct {
	db *sql.DB
	mu sync.RWMutex
}

func New(dbPath string) (*AnalysisCache, error) {

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS analyses (
			id          TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL UNIQUE,
			countries   TEXT NOT NULL,
			result      TEXT NOT NULL,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Println("[cache] SQLite initialized at", dbPath)
	return &AnalysisCache{db: db}, nil
}

// Fingerprint identifies a country batch by the md5 of its JSON form.
// Record order matters because it decides polyglot ties.
func Fingerprint(countries []models.Country) (string, error) {
	data, err := json.Marshal(countries)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", md5.Sum(data)), nil
}

func (c *AnalysisCache) Get(fingerprint string) (*models.AnalysisRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.scanOne(
		"SELECT id, fingerprint, countries, result, created_at FROM analyses WHERE fingerprint = ?",
		fingerprint,
	)
}

func (c *AnalysisCache) GetByID(id string) (*models.AnalysisRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.scanOne(
		"SELECT id, fingerprint, countries, result, created_at FROM analyses WHERE id = ?",
		id,
	)
}

func (c *AnalysisCache) scanOne(query string, arg string) (*models.AnalysisRecord, error) {
	var (
		rec       models.AnalysisRecord
		countries string
		result    string
		createdAt sql.NullString
	)

	err := c.db.QueryRow(query, arg).Scan(&rec.ID, &rec.Fingerprint, &countries, &result, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(countries), &rec.Countries); err != nil {
		return nil, fmt.Errorf("decode countries %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(result), &rec.Result); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", rec.ID, err)
	}
	rec.CreatedAt = createdAt.String

	return &rec, nil
}

// Save stores the analysis of a batch and returns its id. A fingerprint is
// stored once: saving it again returns the id of the existing row, so ids
// handed out earlier stay valid.
func (c *AnalysisCache) Save(fingerprint string, countries []models.Country, result models.AnalysisResult) (string, error) {
	countriesJSON, err := json.Marshal(countries)
	if err != nil {
		return "", err
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.db.Exec(
		`INSERT INTO analyses (id, fingerprint, countries, result)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO NOTHING`,
		uuid.New().String(), fingerprint, string(countriesJSON), string(resultJSON),
	)
	if err != nil {
		log.Printf("[cache] write error: %v", err)
		return "", err
	}

	var id string
	err = c.db.QueryRow("SELECT id FROM analyses WHERE fingerprint = ?", fingerprint).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("read back %s: %w", fingerprint, err)
	}

	return id, nil
}

func (c *AnalysisCache) Stats() (total int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.db.QueryRow("SELECT COUNT(*) FROM analyses").Scan(&total)
	return
}

func (c *AnalysisCache) Close() error {
	return c.db.Close()
}
