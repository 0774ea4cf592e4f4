package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// import sqlite3 driver
	_ "github.com/mattn/go-sqlite3"

	"quant-backtest/internal/model"
)

const createBarsSQL = `CREATE TABLE IF NOT EXISTS daily_prices (
	date      TEXT NOT NULL,
	ticker    TEXT NOT NULL,
	open      REAL,
	high      REAL,
	low       REAL,
	close     REAL,
	adj_close REAL,
	volume    REAL,
	PRIMARY KEY (ticker, date)
);`

// PriceStore is a local SQLite cache of daily bars.
type PriceStore struct {
	db *sql.DB
}

// OpenPriceStore opens (creating if needed) the database at path.
func OpenPriceStore(path string) (*PriceStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(createBarsSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PriceStore{db: db}, nil
}

func (s *PriceStore) Close() error { return s.db.Close() }

// SaveBars upserts bars in one transaction.
func (s *PriceStore) SaveBars(ctx context.Context, bars []model.Bar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO daily_prices
		(date, ticker, open, high, low, close, adj_close, volume) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx, b.Date.Format("2006-01-02"), b.Ticker,
			b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s %s: %w", b.Ticker, b.Date.Format("2006-01-02"), err)
		}
	}
	return tx.Commit()
}

// LoadBars returns bars ordered by (ticker, date). Empty tickers means all;
// zero start or end leaves that side open.
func (s *PriceStore) LoadBars(ctx context.Context, tickers []string, start, end time.Time) ([]model.Bar, error) {
	query := `SELECT date, ticker, open, high, low, close, adj_close, volume FROM daily_prices WHERE 1=1`
	var args []interface{}
	if len(tickers) > 0 {
		query += ` AND ticker IN (?` + strings.Repeat(`, ?`, len(tickers)-1) + `)`
		for _, t := range tickers {
			args = append(args, t)
		}
	}
	if !start.IsZero() {
		query += ` AND date >= ?`
		args = append(args, start.Format("2006-01-02"))
	}
	if !end.IsZero() {
		query += ` AND date <= ?`
		args = append(args, end.Format("2006-01-02"))
	}
	query += ` ORDER BY ticker ASC, date ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Bar
	for rows.Next() {
		var b model.Bar
		var date string
		if err := rows.Scan(&date, &b.Ticker, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return nil, err
		}
		b.Date, err = time.Parse("2006-01-02", date)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Tickers lists the distinct stored tickers.
func (s *PriceStore) Tickers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT ticker FROM daily_prices ORDER BY ticker`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
