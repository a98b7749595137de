// Package sqlite is a SQLite-backed storage implementation with
// embedded goose migrations.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Storage is a SQLite implementation of the storage interface
type Storage struct {
	db     *sql.DB
	logger *slog.Logger
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// New opens the database, applies pragmas and runs migrations
func New(cfg Config, logger *slog.Logger) (*Storage, error) {
	logger = logger.With(slog.String("component", "sqlite"))
	logger.Info("opening database", slog.String("path", cfg.Path))

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := applyPragmas(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("database ready")
	return &Storage{db: db, logger: logger}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}
	return nil
}

func applyPragmas(db *sql.DB, logger *slog.Logger) error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "ON"},
		{"temp_store", "MEMORY"},
	}

	for _, pragma := range pragmas {
		query := fmt.Sprintf("PRAGMA %s = %s", pragma.name, pragma.value)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to set PRAGMA %s: %w", pragma.name, err)
		}
		logger.Debug("pragma set", slog.String("pragma", pragma.name), slog.String("value", pragma.value))
	}
	return nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Identity operations

const identityColumns = `id, nick, skill_score, avatar, faction, is_guest, created_at`

func (s *Storage) SaveIdentity(ctx context.Context, identity *model.Identity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (id, nick, nick_key, skill_score, avatar, faction, is_guest, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			nick = excluded.nick,
			nick_key = excluded.nick_key,
			skill_score = excluded.skill_score,
			avatar = excluded.avatar,
			faction = excluded.faction,
			is_guest = excluded.is_guest`,
		string(identity.ID),
		identity.Nick,
		storage.NormalizeNick(identity.Nick),
		identity.SkillScore,
		identity.Avatar,
		string(identity.Faction),
		identity.IsGuest,
		identity.CreatedAt.UnixNano(),
	)
	if isUniqueViolation(err) {
		return model.ErrNickTaken
	}
	return err
}

func (s *Storage) GetIdentity(ctx context.Context, id model.PlayerID) (*model.Identity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = ?`, string(id))
	return scanIdentity(row)
}

func (s *Storage) GetIdentityByNick(ctx context.Context, nick string) (*model.Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE nick_key = ?`,
		storage.NormalizeNick(nick))
	return scanIdentity(row)
}

func (s *Storage) AdjustSkillScore(ctx context.Context, id model.PlayerID, delta int) (int, error) {
	var score int
	err := s.db.QueryRowContext(ctx, `
		UPDATE identities SET skill_score = MAX(0, skill_score + ?)
		WHERE id = ?
		RETURNING skill_score`, delta, string(id)).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrPlayerNotFound
	}
	if err != nil {
		return 0, err
	}
	return score, nil
}

func (s *Storage) TopIdentities(ctx context.Context, limit int) ([]*model.Identity, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+identityColumns+` FROM identities ORDER BY skill_score DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Identity, 0)
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, identity)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row scanner) (*model.Identity, error) {
	var (
		identity  model.Identity
		id        string
		faction   string
		createdAt int64
	)
	err := row.Scan(&id, &identity.Nick, &identity.SkillScore, &identity.Avatar, &faction, &identity.IsGuest, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	identity.ID = model.PlayerID(id)
	identity.Faction = model.Faction(faction)
	identity.CreatedAt = time.Unix(0, createdAt).UTC()
	return &identity, nil
}

// Credential operations

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (username, player_id, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
			player_id = excluded.player_id,
			password_hash = excluded.password_hash,
			updated_at = excluded.updated_at`,
		cred.Username,
		string(cred.PlayerID),
		cred.PasswordHash,
		cred.CreatedAt.UnixNano(),
		cred.UpdatedAt.UnixNano(),
	)
	return err
}

func (s *Storage) GetCredentialByUsername(ctx context.Context, username string) (*model.Credential, error) {
	var (
		cred                 model.Credential
		playerID             string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT username, player_id, password_hash, created_at, updated_at
		FROM credentials WHERE username = ?`, username).
		Scan(&cred.Username, &playerID, &cred.PasswordHash, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	cred.PlayerID = model.PlayerID(playerID)
	cred.CreatedAt = time.Unix(0, createdAt).UTC()
	cred.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &cred, nil
}

// Match result operations

func (s *Storage) SaveMatchResult(ctx context.Context, result *model.MatchResult) error {
	o := result.Outcome
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_results (
			id, match_id, kind, participant1, participant2, score1, score2,
			winner_id, reason, skill_delta1, skill_delta2, ended_at, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(result.ID), string(o.MatchID), string(o.Kind),
		string(o.Participant1ID), string(o.Participant2ID), o.Score1, o.Score2,
		string(o.WinnerID), string(o.Reason), result.SkillDelta1, result.SkillDelta2,
		o.EndedAt.UnixNano(), result.RecordedAt.UnixNano(),
	)
	return err
}

func (s *Storage) GetMatchResults(ctx context.Context, playerID model.PlayerID, limit int) ([]*model.MatchResult, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, match_id, kind, participant1, participant2, score1, score2,
			winner_id, reason, skill_delta1, skill_delta2, ended_at, recorded_at
		FROM match_results
		WHERE participant1 = ? OR participant2 = ?
		ORDER BY seq DESC
		LIMIT ?`, string(playerID), string(playerID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.MatchResult, 0)
	for rows.Next() {
		var (
			r                      model.MatchResult
			id, matchID, kind      string
			p1, p2, winner, reason string
			endedAt, recordedAt    int64
		)
		if err := rows.Scan(&id, &matchID, &kind, &p1, &p2, &r.Outcome.Score1, &r.Outcome.Score2,
			&winner, &reason, &r.SkillDelta1, &r.SkillDelta2, &endedAt, &recordedAt); err != nil {
			return nil, err
		}
		r.ID = model.MatchResultID(id)
		r.Outcome.MatchID = model.RoomID(matchID)
		r.Outcome.Kind = model.MatchKind(kind)
		r.Outcome.Participant1ID = model.PlayerID(p1)
		r.Outcome.Participant2ID = model.PlayerID(p2)
		r.Outcome.WinnerID = model.PlayerID(winner)
		r.Outcome.Reason = model.OutcomeReason(reason)
		r.Outcome.EndedAt = time.Unix(0, endedAt).UTC()
		r.RecordedAt = time.Unix(0, recordedAt).UTC()
		out = append(out, &r)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
