package store

import (
	"time"

	"github.com/pavelanni/exambank/internal/model"
)

// InsertAsset records a published document.
func (s *Store) InsertAsset(a model.Asset) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO assets (key, url, mime_type, uploaded_by, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.Key, a.URL, a.MIMEType, a.UploadedBy, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListAssets returns published documents, newest first.
func (s *Store) ListAssets() ([]model.Asset, error) {
	rows, err := s.db.Query(
		`SELECT id, key, url, mime_type, uploaded_by, created_at FROM assets ORDER BY id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assets []model.Asset
	for rows.Next() {
		var a model.Asset
		if err := rows.Scan(&a.ID, &a.Key, &a.URL, &a.MIMEType, &a.UploadedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
