package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethanbaker/voice-assistant/pkg/utils"
	mysqlcfg "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store records turns in a SQL database through GORM
type Store struct {
	db *gorm.DB
}

// NewStore opens a store on the given dialector and migrates its table
func NewStore(dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return store, nil
}

// Open builds the recorder selected by DATABASE_DRIVER. "mysql" assembles
// a DSN from the MYSQL_* keys, "sqlite" opens SQLITE_PATH. An empty driver
// returns a nil recorder, which disables the ledger
func Open(cfg *utils.Config) (Recorder, error) {
	var dialector gorm.Dialector

	switch driver := strings.ToLower(cfg.Get("DATABASE_DRIVER")); driver {
	case "":
		return nil, nil

	case "mysql":
		dbConfig := mysqlcfg.Config{
			User:      cfg.Get("MYSQL_USER"),
			Passwd:    cfg.Get("MYSQL_ROOT_PASSWORD"),
			Net:       "tcp",
			Addr:      fmt.Sprintf("%s:%s", cfg.GetWithDefault("MYSQL_HOST", "localhost"), cfg.GetWithDefault("MYSQL_PORT", "3306")),
			DBName:    cfg.Get("MYSQL_DATABASE"),
			ParseTime: true,
			Params:    map[string]string{"charset": "utf8mb4"},
		}
		dialector = mysql.Open(dbConfig.FormatDSN())

	case "sqlite":
		dialector = sqlite.Open(cfg.GetWithDefault("SQLITE_PATH", "storage/ledger.db"))

	case "memory":
		return NewInMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown database driver '%s'", driver)
	}

	store, err := NewStore(dialector)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// migrate creates or updates the required database tables
func (s *Store) migrate() error {
	return s.db.AutoMigrate(&TurnModel{})
}

// Record stores a turn
func (s *Store) Record(ctx context.Context, turn *Turn) error {
	if turn.SessionID == "" {
		return fmt.Errorf("session_id cannot be empty")
	}

	if err := s.db.WithContext(ctx).Create(modelFromTurn(turn)).Error; err != nil {
		return fmt.Errorf("failed to record turn: %w", err)
	}

	return nil
}

// Recent returns up to limit turns, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]*Turn, error) {
	var models []TurnModel
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(ClampLimit(limit)).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}

	turns := make([]*Turn, len(models))
	for i := range models {
		turns[i] = models[i].toTurn()
	}

	return turns, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}
	return sqlDB.Close()
}
