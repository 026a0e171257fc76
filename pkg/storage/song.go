package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Song is the last saved state of a song of the AI-COVERS tree.
type Song struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name     string `gorm:"uniqueIndex;not null"`
	SongName string `gorm:"not null;default:''"`
	Artist   string `gorm:"index;not null;default:''"`
	Decade   string `gorm:"index;not null;default:''"`
	Style    string `gorm:"not null;default:''"`

	Path    string `gorm:"not null;default:''"`
	Image   string `gorm:"not null;default:''"`
	Video   string `gorm:"not null;default:''"`
	Details string `gorm:"not null;default:''"`
}

func (s *Store) GetSong(ctx context.Context, id string) (*Song, error) {
	var v Song
	if err := s.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get song %s: %w", id, err)
	}
	return &v, nil
}

// GetSongByName looks a song up by its AI cover name.
func (s *Store) GetSongByName(ctx context.Context, name string) (*Song, error) {
	var v Song
	if err := s.db.WithContext(ctx).First(&v, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get song %q: %w", name, err)
	}
	return &v, nil
}

func (s *Store) SetSong(ctx context.Context, v *Song) error {
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set song %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) DeleteSong(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&Song{ID: id}, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("storage: failed to delete song %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListSongs(ctx context.Context, page, size int, orderBy string, filter ...Filter) ([]*Song, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * size
	vs := []*Song{}

	q := s.db.WithContext(ctx).Offset(offset).Limit(size)
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	if orderBy != "" {
		q = q.Order(orderBy)
	}
	if err := q.Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list songs: %w", err)
	}
	return vs, nil
}
