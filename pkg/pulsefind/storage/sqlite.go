package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/models"
	"github.com/marvisomokaro4-boop/pulsefind/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "pulsefind.sqlite3"
const errDBClientNil = "db client is nil"

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// songRow is the persisted form of a models.StoredSong. Spectral features
// and platform IDs are stored as JSON columns since they are only ever read
// back whole.
type songRow struct {
	ID               string `gorm:"primaryKey;type:varchar(36)"`
	FingerprintHash  string `gorm:"uniqueIndex:idx_fingerprint_hash" json:"fingerprint_hash"`
	Title            string `gorm:"index:idx_song_meta,priority:1" json:"title"`
	Artist           string `gorm:"index:idx_song_meta,priority:2" json:"artist"`
	Album            string `json:"album"`
	ISRC             string `gorm:"index:idx_isrc" json:"isrc"`
	PlatformIDs      string `json:"platform_ids"`
	Binary           string `json:"binary"`
	QuickHash        string `json:"quick_hash"`
	SpectralFeatures string `json:"spectral_features"`
	DurationMs       int    `json:"duration_ms"`
	Popularity       int    `json:"popularity"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (songRow) TableName() string { return "songs" }

// scanRow is one analytics record. Rows are append-only.
type scanRow struct {
	ID                string `gorm:"primaryKey;type:varchar(36)"`
	Mode              string `json:"mode"`
	DeepScan          bool   `json:"deep_scan"`
	Genre             string `json:"genre"`
	TempoBPM          int    `json:"tempo_bpm"`
	StrictThreshold   int    `json:"strict_threshold"`
	LooseThreshold    int    `json:"loose_threshold"`
	SegmentsPlanned   int    `json:"segments_planned"`
	SegmentsSucceeded int    `json:"segments_succeeded"`
	SegmentsFailed    int    `json:"segments_failed"`
	ResultCount       int    `json:"result_count"`
	FromCache         bool   `json:"from_cache"`
	ElapsedMs         int64  `json:"elapsed_ms"`
	CreatedAt         time.Time
}

func (scanRow) TableName() string { return "scans" }

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("PULSEFIND_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !os.IsExist(err) {
		if filepath.Dir(dbPath) != "." {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&songRow{}, &scanRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// UpsertSong stores a song keyed by its fingerprint hash. An existing row
// with the same hash is updated in place; song identity and platform IDs
// from the new entry win only where the stored row is empty, so repeated
// scans never erase known metadata. Returns the row's ID.
func (c *DBClient) UpsertSong(song models.StoredSong) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}
	if song.FingerprintHash == "" {
		return "", errors.New("fingerprint hash is required")
	}

	id, found, err := c.mergeExisting(song)
	if err != nil {
		return "", err
	}
	if found {
		return id, nil
	}

	row, err := toRow(song)
	if err != nil {
		return "", err
	}
	if row.ID == "" {
		row.ID = utils.GenerateUUID()
	}
	createErr := c.DB.Create(&row).Error
	if createErr == nil {
		return row.ID, nil
	}

	// A concurrent writer may have created the row between the lookup and
	// the insert, tripping the unique hash index. Retry as a merge so the
	// result is the same regardless of write order.
	id, found, err = c.mergeExisting(song)
	if err == nil && found {
		return id, nil
	}
	return "", fmt.Errorf("creating song: %w", createErr)
}

// mergeExisting folds song into the stored row sharing its fingerprint
// hash. The second return reports whether such a row existed.
func (c *DBClient) mergeExisting(song models.StoredSong) (string, bool, error) {
	var existing songRow
	err := c.DB.Where("fingerprint_hash = ?", song.FingerprintHash).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying existing song: %w", err)
	}

	merged, err := mergeRows(existing, song)
	if err != nil {
		return "", false, err
	}
	if err := c.DB.Save(&merged).Error; err != nil {
		return "", false, fmt.Errorf("updating song: %w", err)
	}
	return merged.ID, true, nil
}

// ListSongs returns every stored fingerprint entry, newest first.
func (c *DBClient) ListSongs() ([]models.StoredSong, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var rows []songRow
	if err := c.DB.Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing songs: %w", err)
	}

	out := make([]models.StoredSong, 0, len(rows))
	for _, r := range rows {
		song, err := fromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, song)
	}
	return out, nil
}

// GetSongByHash fetches one entry by fingerprint hash. Returns
// gorm.ErrRecordNotFound when absent.
func (c *DBClient) GetSongByHash(hash string) (*models.StoredSong, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var row songRow
	if err := c.DB.Where("fingerprint_hash = ?", hash).First(&row).Error; err != nil {
		return nil, err
	}
	song, err := fromRow(row)
	if err != nil {
		return nil, err
	}
	return &song, nil
}

func (c *DBClient) DeleteSongByID(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Where("id = ?", id).Delete(&songRow{}).Error
}

// RecordScan appends one analytics row. Callers treat failures as
// best-effort; this method never touches the songs table.
func (c *DBClient) RecordScan(rec models.ScanAnalytics) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}

	row := scanRow{
		ID:                rec.ScanID,
		Mode:              string(rec.Mode),
		DeepScan:          rec.DeepScan,
		Genre:             string(rec.Characteristics.Genre),
		TempoBPM:          rec.Characteristics.TempoBPM,
		StrictThreshold:   rec.Thresholds.Strict,
		LooseThreshold:    rec.Thresholds.Loose,
		SegmentsPlanned:   rec.SegmentsPlanned,
		SegmentsSucceeded: rec.SegmentsSucceeded,
		SegmentsFailed:    rec.SegmentsFailed,
		ResultCount:       rec.Metrics.ResultsAfterFilter,
		FromCache:         rec.FromCache,
		ElapsedMs:         rec.ElapsedMs,
	}
	if row.ID == "" {
		row.ID = utils.GenerateUUID()
	}
	if err := c.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("recording scan: %w", err)
	}
	return nil
}

// ScanStats summarizes the analytics table for the metrics endpoint.
type ScanStats struct {
	TotalScans    int64          `json:"total_scans"`
	CacheHits     int64          `json:"cache_hits"`
	DeepScans     int64          `json:"deep_scans"`
	AvgElapsedMs  float64        `json:"avg_elapsed_ms"`
	ScansByGenre  map[string]int `json:"scans_by_genre"`
	FailedSegment int64          `json:"failed_segments"`
}

func (c *DBClient) Stats() (*ScanStats, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	stats := &ScanStats{ScansByGenre: make(map[string]int)}

	if err := c.DB.Model(&scanRow{}).Count(&stats.TotalScans).Error; err != nil {
		return nil, fmt.Errorf("counting scans: %w", err)
	}
	if err := c.DB.Model(&scanRow{}).Where("from_cache = ?", true).Count(&stats.CacheHits).Error; err != nil {
		return nil, fmt.Errorf("counting cache hits: %w", err)
	}
	if err := c.DB.Model(&scanRow{}).Where("deep_scan = ?", true).Count(&stats.DeepScans).Error; err != nil {
		return nil, fmt.Errorf("counting deep scans: %w", err)
	}

	var avg sql.NullFloat64
	if err := c.DB.Model(&scanRow{}).Select("avg(elapsed_ms)").Scan(&avg).Error; err != nil {
		return nil, fmt.Errorf("averaging elapsed: %w", err)
	}
	stats.AvgElapsedMs = avg.Float64

	type genreCount struct {
		Genre string
		N     int
	}
	var byGenre []genreCount
	if err := c.DB.Model(&scanRow{}).
		Select("genre, count(*) as n").
		Group("genre").
		Scan(&byGenre).Error; err != nil {
		return nil, fmt.Errorf("grouping by genre: %w", err)
	}
	for _, gc := range byGenre {
		stats.ScansByGenre[gc.Genre] = gc.N
	}

	var failed sql.NullInt64
	if err := c.DB.Model(&scanRow{}).Select("sum(segments_failed)").Scan(&failed).Error; err != nil {
		return nil, fmt.Errorf("summing failed segments: %w", err)
	}
	stats.FailedSegment = failed.Int64

	return stats, nil
}

func toRow(song models.StoredSong) (songRow, error) {
	ids, err := json.Marshal(song.PlatformIDs)
	if err != nil {
		return songRow{}, fmt.Errorf("marshaling platform ids: %w", err)
	}
	features := "[]"
	if len(song.SpectralFeatures) > 0 {
		raw, err := json.Marshal(song.SpectralFeatures)
		if err != nil {
			return songRow{}, fmt.Errorf("marshaling spectral features: %w", err)
		}
		features = string(raw)
	}
	return songRow{
		ID:               song.ID,
		FingerprintHash:  song.FingerprintHash,
		Title:            song.Title,
		Artist:           song.Artist,
		Album:            song.Album,
		ISRC:             song.ISRC,
		PlatformIDs:      string(ids),
		Binary:           song.Binary,
		QuickHash:        song.QuickHash,
		SpectralFeatures: features,
		DurationMs:       song.DurationMs,
		Popularity:       song.Popularity,
	}, nil
}

func fromRow(row songRow) (models.StoredSong, error) {
	song := models.StoredSong{
		ID:              row.ID,
		FingerprintHash: row.FingerprintHash,
		Title:           row.Title,
		Artist:          row.Artist,
		Album:           row.Album,
		ISRC:            row.ISRC,
		Binary:          row.Binary,
		QuickHash:       row.QuickHash,
		DurationMs:      row.DurationMs,
		Popularity:      row.Popularity,
	}
	if row.PlatformIDs != "" {
		if err := json.Unmarshal([]byte(row.PlatformIDs), &song.PlatformIDs); err != nil {
			return models.StoredSong{}, fmt.Errorf("unmarshaling platform ids: %w", err)
		}
	}
	if row.SpectralFeatures != "" && row.SpectralFeatures != "[]" {
		if err := json.Unmarshal([]byte(row.SpectralFeatures), &song.SpectralFeatures); err != nil {
			return models.StoredSong{}, fmt.Errorf("unmarshaling spectral features: %w", err)
		}
	}
	return song, nil
}

// mergeRows folds a new scan of the same fingerprint into the stored row.
// Stored metadata wins; the incoming entry only fills gaps and refreshes
// popularity when it has a value.
func mergeRows(existing songRow, incoming models.StoredSong) (songRow, error) {
	stored, err := fromRow(existing)
	if err != nil {
		return songRow{}, err
	}

	if stored.Title == "" {
		stored.Title = incoming.Title
	}
	if stored.Artist == "" {
		stored.Artist = incoming.Artist
	}
	if stored.Album == "" {
		stored.Album = incoming.Album
	}
	if stored.ISRC == "" {
		stored.ISRC = incoming.ISRC
	}
	if stored.Binary == "" {
		stored.Binary = incoming.Binary
	}
	if stored.QuickHash == "" {
		stored.QuickHash = incoming.QuickHash
	}
	if len(stored.SpectralFeatures) == 0 {
		stored.SpectralFeatures = incoming.SpectralFeatures
	}
	if stored.DurationMs == 0 {
		stored.DurationMs = incoming.DurationMs
	}
	if incoming.Popularity > 0 {
		stored.Popularity = incoming.Popularity
	}
	stored.PlatformIDs.Merge(incoming.PlatformIDs)

	row, err := toRow(stored)
	if err != nil {
		return songRow{}, err
	}
	row.CreatedAt = existing.CreatedAt
	return row, nil
}
