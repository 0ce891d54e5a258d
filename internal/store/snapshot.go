package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"quanta/internal/decision"
)

// SnapshotStore 持久化每次分析的结果快照（sqlite）。
type SnapshotStore struct {
	mu sync.Mutex
	db *sql.DB
}

// SnapshotRow 是历史查询返回的一行。
type SnapshotRow struct {
	RunID      string  `json:"run_id"`
	Symbol     string  `json:"symbol"`
	Interval   string  `json:"interval"`
	Composite  int     `json:"composite"`
	Signal     string  `json:"signal"`
	Regime     string  `json:"regime"`
	Confidence float64 `json:"confidence"`
	LastPrice  float64 `json:"last_price"`
	CreatedAt  int64   `json:"created_at"`
}

// OpenSnapshotStore 打开（必要时创建）sqlite 文件并执行迁移。
func OpenSnapshotStore(path string) (*SnapshotStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path 不能为空")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SnapshotStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SnapshotStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS analysis_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			interval TEXT NOT NULL,
			composite INTEGER NOT NULL,
			signal TEXT NOT NULL,
			regime TEXT NOT NULL,
			confidence REAL NOT NULL,
			stablecoin INTEGER NOT NULL DEFAULT 0,
			last_price REAL NOT NULL DEFAULT 0,
			payload TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_symbol_interval
			ON analysis_snapshots(symbol, interval, created_at)`,
	}
	for _, q := range queries {
		if _, err := s.db.ExecContext(context.Background(), q); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Insert 追加一条快照；完整结果以 JSON 形式保存在 payload 列。
func (s *SnapshotStore) Insert(ctx context.Context, runID string, res *decision.Result) error {
	if res == nil {
		return fmt.Errorf("result 不能为空")
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	stable := 0
	if res.Stablecoin {
		stable = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analysis_snapshots
			(run_id, symbol, interval, composite, signal, regime, confidence,
			 stablecoin, last_price, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.Symbol, res.Interval, res.Composite, string(res.Signal),
		string(res.Regime), res.Confidence, stable, res.LastPrice,
		string(payload), time.Now().UnixMilli())
	return err
}

// Latest 返回该 symbol+interval 最近一次的完整结果；没有记录返回 nil。
func (s *SnapshotStore) Latest(ctx context.Context, symbol, interval string) (*decision.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, `
		SELECT payload FROM analysis_snapshots
		WHERE symbol = ? AND interval = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, symbol, interval)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var res decision.Result
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Recent 返回最近 limit 条摘要行（按时间倒序）。
func (s *SnapshotStore) Recent(ctx context.Context, symbol, interval string, limit int) ([]SnapshotRow, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, symbol, interval, composite, signal, regime, confidence,
		       last_price, created_at
		FROM analysis_snapshots
		WHERE symbol = ? AND interval = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		if err := rows.Scan(&r.RunID, &r.Symbol, &r.Interval, &r.Composite,
			&r.Signal, &r.Regime, &r.Confidence, &r.LastPrice, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SnapshotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
