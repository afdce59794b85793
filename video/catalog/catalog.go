// Package catalog keeps a queryable index of delivered artifacts in a local
// sqlite database. It subscribes to the filesystem sink as a Listener.
package catalog

import (
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gifcam/video/sink"
)

type Entry struct {
	gorm.Model

	ArtifactID string `gorm:"uniqueIndex"`
	ClipPath   string
	Frames     int
	DelayMs    int
	Width      int
	Height     int
	CapturedAt time.Time
}

type Catalog struct {
	db *gorm.DB
}

func Open(path string) (*Catalog, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) Add(r *sink.Record) error {
	e := &Entry{
		ArtifactID: r.ID,
		ClipPath:   r.ClipPath,
		Frames:     r.Frames,
		DelayMs:    r.DelayMs,
		Width:      r.Width,
		Height:     r.Height,
		CapturedAt: r.Time,
	}
	return c.db.Create(e).Error
}

// Recent returns up to n entries, newest capture first.
func (c *Catalog) Recent(n int) ([]Entry, error) {
	var entries []Entry
	err := c.db.Order("captured_at desc").Limit(n).Find(&entries).Error
	return entries, err
}

// ArtifactStored implements sink.Listener.
func (c *Catalog) ArtifactStored(r *sink.Record) {
	if err := c.Add(r); err != nil {
		log.Errorf("Failed to catalog artifact %v: %v", r.ID, err)
	}
}

func (c *Catalog) Close() error {
	db, err := c.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
