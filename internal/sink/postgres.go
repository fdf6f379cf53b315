package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"postimport/internal/domain/content"
	domainerr "postimport/internal/domain/errors"
)

// Post is the postgres row for one imported document.
type Post struct {
	Key         string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	PublishedAt int64  `gorm:"index;not null"`
	HTML        string `gorm:"not null"`
	Metadata    string `gorm:"type:jsonb;not null"`
	UpdatedAt   time.Time
}

type Postgres struct {
	DB *gorm.DB
}

// OpenPostgres connects to dsn and migrates the posts table.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&Post{}); err != nil {
		return nil, fmt.Errorf("migrate posts: %w", err)
	}
	return &Postgres{DB: db}, nil
}

func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{DB: db}
}

func (p *Postgres) Close() error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *Postgres) Insert(ctx context.Context, post *content.Metadata) error {
	r, err := toRow(post)
	if err != nil {
		return err
	}
	rec := Post{
		Key:         r.Key,
		Title:       r.Title,
		PublishedAt: r.PublishedAt,
		HTML:        r.HTML,
		Metadata:    r.Metadata,
	}

	err = p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "published_at", "html", "metadata", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domainerr.ErrPersistenceFailure, r.Key, err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, key string) (*content.Metadata, error) {
	var rec Post
	err := p.DB.WithContext(ctx).Where("key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeMetadata(rec.Metadata)
}
