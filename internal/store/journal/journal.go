package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DecisionRecord is one journalled run of the trading machine for a coin.
type DecisionRecord struct {
	ID            int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RunID         string         `gorm:"column:run_id;index" json:"run_id"`
	Coin          string         `gorm:"column:coin;index:idx_decisions_coin_date" json:"coin"`
	RunDate       string         `gorm:"column:run_date;index:idx_decisions_coin_date" json:"run_date"`
	Mode          string         `gorm:"column:mode" json:"mode"`
	Action        string         `gorm:"column:action" json:"action"`
	Close         float64        `gorm:"column:close" json:"close"`
	RollingMean   float64        `gorm:"column:rolling_mean" json:"rolling_mean"`
	BollingerHigh float64        `gorm:"column:bollinger_high" json:"bollinger_high"`
	BollingerLow  float64        `gorm:"column:bollinger_low" json:"bollinger_low"`
	Forecast      float64        `gorm:"column:forecast" json:"forecast"`
	StopLossPrice float64        `gorm:"column:stop_loss_price" json:"stop_loss_price"`
	LedgerJSON    datatypes.JSON `gorm:"column:ledger_json" json:"ledger"`
	CreatedAtUnix int64          `gorm:"column:created_at" json:"created_at"`
}

func (DecisionRecord) TableName() string { return "decisions" }

// Store is the sqlite-backed decision journal.
type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&DecisionRecord{}); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Insert stores rec and fills in its ID. A zero CreatedAtUnix is set to now.
func (s *Store) Insert(ctx context.Context, rec *DecisionRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("journal: not initialized")
	}
	if rec == nil {
		return nil
	}
	rec.Coin = strings.ToLower(strings.TrimSpace(rec.Coin))
	if rec.Coin == "" {
		return fmt.Errorf("journal: coin is required")
	}
	if rec.CreatedAtUnix == 0 {
		rec.CreatedAtUnix = time.Now().Unix()
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

// ListRecent returns up to limit records for coin, newest first.
func (s *Store) ListRecent(ctx context.Context, coin string, limit int) ([]DecisionRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("journal: not initialized")
	}
	if limit <= 0 {
		limit = 30
	}
	var out []DecisionRecord
	err := s.db.WithContext(ctx).
		Where("coin = ?", strings.ToLower(coin)).
		Order("run_date DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListByCoin returns every record for coin in run order.
func (s *Store) ListByCoin(ctx context.Context, coin string) ([]DecisionRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("journal: not initialized")
	}
	var out []DecisionRecord
	err := s.db.WithContext(ctx).
		Where("coin = ?", strings.ToLower(coin)).
		Order("run_date ASC").Order("id ASC").
		Find(&out).Error
	return out, err
}
