package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"voxelwater/internal/fluid"
	"voxelwater/internal/logger"
	"voxelwater/internal/world"
)

// FormatVersion is bumped whenever the stored cell encoding changes.
const FormatVersion = 1

// ChunkWaterModel is one chunk's saved water.
type ChunkWaterModel struct {
	ID        string `gorm:"primaryKey"` // "X_Y_Z"
	X, Y, Z   int32  `gorm:"index:idx_pos"`
	Data      []byte
	Cells     int
	Volume    float64
	UpdatedAt time.Time
}

// TableName keeps the table name stable across struct renames.
func (ChunkWaterModel) TableName() string { return "chunk_water" }

// Metadata stores world level key/value pairs.
type Metadata struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

// Store keeps chunk water in a SQLite database.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open opens (or creates) the database at path and migrates it.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create save dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&ChunkWaterModel{}, &Metadata{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := db.Save(&Metadata{Key: "FormatVersion", Value: fmt.Sprint(FormatVersion)}).Error; err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}

	s := &Store{db: db, log: logger.Named("persistence")}
	saved, err := s.Count()
	if err != nil {
		return nil, fmt.Errorf("count saved chunks: %w", err)
	}
	s.log.Info("water store opened", zap.String("path", path), zap.Int64("chunks", saved))
	return s, nil
}

func chunkID(c world.ChunkCoord) string {
	return fmt.Sprintf("%d_%d_%d", c.X, c.Y, c.Z)
}

func modelFor(coord world.ChunkCoord, st *fluid.Storage) ChunkWaterModel {
	return ChunkWaterModel{
		ID:     chunkID(coord),
		X:      int32(coord.X),
		Y:      int32(coord.Y),
		Z:      int32(coord.Z),
		Data:   EncodeStorage(st),
		Cells:  st.Len(),
		Volume: st.TotalVolume(),
	}
}

// SaveChunk writes the water of coord, replacing any previous save.
func (s *Store) SaveChunk(coord world.ChunkCoord, st *fluid.Storage) error {
	m := modelFor(coord, st)
	if err := s.db.Save(&m).Error; err != nil {
		return fmt.Errorf("save %v: %w", coord, err)
	}
	return nil
}

// LoadChunk reads the saved water of coord.
func (s *Store) LoadChunk(coord world.ChunkCoord) (*fluid.Storage, error) {
	var m ChunkWaterModel
	if err := s.db.First(&m, "id = ?", chunkID(coord)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load %v: %w", coord, err)
	}
	st, err := DecodeStorage(m.Data)
	if err != nil {
		return nil, fmt.Errorf("load %v: %w", coord, err)
	}
	return st, nil
}

// DeleteChunk removes the save of coord.
func (s *Store) DeleteChunk(coord world.ChunkCoord) error {
	if err := s.db.Delete(&ChunkWaterModel{}, "id = ?", chunkID(coord)).Error; err != nil {
		return fmt.Errorf("delete %v: %w", coord, err)
	}
	return nil
}

// SaveAll writes every chunk in one transaction and returns how many were saved.
func (s *Store) SaveAll(chunks map[world.ChunkCoord]*fluid.Storage) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	start := time.Now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for coord, st := range chunks {
			m := modelFor(coord, st)
			if err := tx.Save(&m).Error; err != nil {
				return fmt.Errorf("save %v: %w", coord, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Debug("water saved", zap.Int("chunks", len(chunks)), zap.Duration("took", time.Since(start)))
	return len(chunks), nil
}

// Count returns the number of saved chunks.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.Model(&ChunkWaterModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Close releases the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
