package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a queried game has no stored row.
var ErrNotFound = errors.New("not found")

// RecordNewGame asynchronously records a new game
func (s *Store) RecordNewGame(record GameRecord) {
	s.enqueue("game record", func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO games (
			game_id, initial_fen, white_player_id, black_player_id, start_time_utc
		) VALUES (?, ?, ?, ?, ?)`,
			record.GameID, record.InitialFEN, record.WhitePlayerID, record.BlackPlayerID, record.StartTimeUTC,
		)
		return err
	})
}

// RecordMove asynchronously records a move
func (s *Store) RecordMove(record MoveRecord) {
	s.enqueue("move record", func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO moves (
			game_id, ply, notation, position_key, player_color, move_time_utc
		) VALUES (?, ?, ?, ?, ?, ?)`,
			record.GameID, record.Ply, record.Notation, record.PositionKey,
			record.PlayerColor, record.MoveTimeUTC,
		)
		return err
	})
}

// DeleteUndoneMoves asynchronously deletes moves after undo or rematch
func (s *Store) DeleteUndoneMoves(gameID string, afterPly int) {
	s.enqueue("undo", func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM moves WHERE game_id = ? AND ply > ?`, gameID, afterPly)
		return err
	})
}

// SaveSnapshot asynchronously replaces the stored position of a game
func (s *Store) SaveSnapshot(record SnapshotRecord) {
	s.enqueue("snapshot", func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO snapshots (game_id, snapshot_json, updated_utc)
			VALUES (?, ?, ?)
			ON CONFLICT(game_id) DO UPDATE SET
				snapshot_json = excluded.snapshot_json,
				updated_utc = excluded.updated_utc`,
			record.GameID, record.Snapshot, record.UpdatedUTC,
		)
		return err
	})
}

// DeleteGame asynchronously removes a game with its moves and snapshot
func (s *Store) DeleteGame(gameID string) {
	s.enqueue("game deletion", func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM games WHERE game_id = ?`, gameID)
		return err
	})
}

// DeleteGamesBefore removes games started before cutoff and reports how many
// were deleted.
func (s *Store) DeleteGamesBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM games WHERE start_time_utc < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}
	return res.RowsAffected()
}

// LoadSnapshot returns the latest stored position of a game
func (s *Store) LoadSnapshot(gameID string) (*SnapshotRecord, error) {
	var r SnapshotRecord
	err := s.db.QueryRow(
		`SELECT game_id, snapshot_json, updated_utc FROM snapshots WHERE game_id = ?`, gameID,
	).Scan(&r.GameID, &r.Snapshot, &r.UpdatedUTC)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return &r, nil
}

// QueryGames retrieves games, all of them for an empty or "*" gameID
func (s *Store) QueryGames(gameID string) ([]GameRecord, error) {
	query := `SELECT game_id, initial_fen, white_player_id, black_player_id, start_time_utc
	FROM games WHERE 1=1`

	var args []interface{}
	if gameID != "" && gameID != "*" {
		query += " AND game_id = ?"
		args = append(args, gameID)
	}
	query += " ORDER BY start_time_utc DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var games []GameRecord
	for rows.Next() {
		var g GameRecord
		if err := rows.Scan(&g.GameID, &g.InitialFEN, &g.WhitePlayerID, &g.BlackPlayerID, &g.StartTimeUTC); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		games = append(games, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return games, nil
}

// QueryMoves retrieves the stored moves of a game in ply order
func (s *Store) QueryMoves(gameID string) ([]MoveRecord, error) {
	rows, err := s.db.Query(`SELECT move_id, game_id, ply, notation, position_key, player_color, move_time_utc
	FROM moves WHERE game_id = ? ORDER BY ply`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var moves []MoveRecord
	for rows.Next() {
		var m MoveRecord
		if err := rows.Scan(&m.MoveID, &m.GameID, &m.Ply, &m.Notation, &m.PositionKey, &m.PlayerColor, &m.MoveTimeUTC); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		moves = append(moves, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return moves, nil
}
