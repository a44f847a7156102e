package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/retreatscout/retreat-scout/internal/model"
	"github.com/retreatscout/retreat-scout/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and
// verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Profiles() store.Profiles       { return &profiles{db: s.db} }
func (s *pgStore) Sessions() store.Sessions       { return &sessions{db: s.db} }
func (s *pgStore) Messages() store.Messages       { return &messages{db: s.db} }
func (s *pgStore) Retreats() store.Retreats       { return &retreats{db: s.db} }
func (s *pgStore) Payments() store.Payments       { return &payments{db: s.db} }
func (s *pgStore) Credentials() store.Credentials { return &credentials{db: s.db} }

// HealthPing implements health.HealthPinger for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Bootstrap applies the schema. Statements are idempotent so repeated
// startup against an existing database is safe.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
    user_id        TEXT PRIMARY KEY,
    email          TEXT NOT NULL UNIQUE,
    full_name      TEXT,
    is_premium     BOOLEAN NOT NULL DEFAULT FALSE,
    payment_status TEXT NOT NULL DEFAULT 'none',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS credentials (
    user_id       TEXT PRIMARY KEY REFERENCES profiles(user_id),
    password_hash BYTEA NOT NULL
);
CREATE TABLE IF NOT EXISTS chat_sessions (
    id           TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL REFERENCES profiles(user_id),
    session_name TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS chat_messages (
    id         TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES chat_sessions(id),
    user_id    TEXT NOT NULL,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, created_at);
CREATE TABLE IF NOT EXISTS user_retreats (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    session_id TEXT NOT NULL REFERENCES chat_sessions(id),
    title      TEXT NOT NULL,
    location   TEXT NOT NULL,
    date       TEXT NOT NULL,
    link       TEXT NOT NULL,
    image_url  TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_user_retreats_session ON user_retreats(session_id, created_at);
CREATE TABLE IF NOT EXISTS payments (
    id             TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL REFERENCES profiles(user_id),
    amount         NUMERIC(10,2) NOT NULL,
    status         TEXT NOT NULL,
    payment_method TEXT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// mapErr converts driver-level errors to model sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", model.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// --- Profiles ---

type profiles struct{ db *sql.DB }

func (p *profiles) Create(ctx context.Context, m *model.Profile) (*model.Profile, error) {
	status := m.PaymentStatus
	if status == "" {
		status = "none"
	}
	var created time.Time
	row := p.db.QueryRowContext(ctx, `
        INSERT INTO profiles (user_id, email, full_name, is_premium, payment_status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at
    `, m.UserID, m.Email, m.FullName, m.IsPremium, status)
	if err := row.Scan(&created); err != nil {
		return nil, mapErr(err)
	}
	out := *m
	out.PaymentStatus = status
	out.CreatedAt = created
	return &out, nil
}

func (p *profiles) Get(ctx context.Context, userID string) (*model.Profile, error) {
	row := p.db.QueryRowContext(ctx, `
        SELECT user_id, email, full_name, is_premium, payment_status, created_at
        FROM profiles WHERE user_id=$1
    `, userID)
	return scanProfile(row)
}

func (p *profiles) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	row := p.db.QueryRowContext(ctx, `
        SELECT user_id, email, full_name, is_premium, payment_status, created_at
        FROM profiles WHERE email=$1
    `, email)
	return scanProfile(row)
}

func (p *profiles) Update(ctx context.Context, userID string, patch model.ProfilePatch) (*model.Profile, error) {
	row := p.db.QueryRowContext(ctx, `
        UPDATE profiles SET
            full_name      = COALESCE($2, full_name),
            is_premium     = COALESCE($3, is_premium),
            payment_status = COALESCE($4, payment_status)
        WHERE user_id=$1
        RETURNING user_id, email, full_name, is_premium, payment_status, created_at
    `, userID, patch.FullName, patch.IsPremium, patch.PaymentStatus)
	return scanProfile(row)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanProfile(row rowScanner) (*model.Profile, error) {
	var out model.Profile
	if err := row.Scan(&out.UserID, &out.Email, &out.FullName, &out.IsPremium, &out.PaymentStatus, &out.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

// --- Credentials ---

type credentials struct{ db *sql.DB }

func (c *credentials) Set(ctx context.Context, userID string, hash []byte) error {
	_, err := c.db.ExecContext(ctx, `
        INSERT INTO credentials (user_id, password_hash) VALUES ($1,$2)
        ON CONFLICT (user_id) DO UPDATE SET password_hash = EXCLUDED.password_hash
    `, userID, hash)
	return mapErr(err)
}

func (c *credentials) GetByEmail(ctx context.Context, email string) (string, []byte, error) {
	var userID string
	var hash []byte
	row := c.db.QueryRowContext(ctx, `
        SELECT p.user_id, c.password_hash
        FROM credentials c JOIN profiles p ON p.user_id = c.user_id
        WHERE p.email=$1
    `, email)
	if err := row.Scan(&userID, &hash); err != nil {
		return "", nil, mapErr(err)
	}
	return userID, hash, nil
}

// --- Sessions ---

type sessions struct{ db *sql.DB }

func (s *sessions) Create(ctx context.Context, m *model.ChatSession) (*model.ChatSession, error) {
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	var created, updated time.Time
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO chat_sessions (id, user_id, session_name)
        VALUES ($1,$2,$3)
        RETURNING created_at, updated_at
    `, id, m.UserID, m.Name)
	if err := row.Scan(&created, &updated); err != nil {
		return nil, mapErr(err)
	}
	return &model.ChatSession{ID: id, UserID: m.UserID, Name: m.Name, CreatedAt: created, UpdatedAt: updated}, nil
}

func (s *sessions) Get(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	var out model.ChatSession
	row := s.db.QueryRowContext(ctx, `
        SELECT id, user_id, session_name, created_at, updated_at
        FROM chat_sessions WHERE user_id=$1 AND id=$2
    `, userID, sessionID)
	if err := row.Scan(&out.ID, &out.UserID, &out.Name, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

func (s *sessions) List(ctx context.Context, userID string) ([]*model.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, user_id, session_name, created_at, updated_at
        FROM chat_sessions WHERE user_id=$1 ORDER BY updated_at DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []*model.ChatSession
	for rows.Next() {
		var cs model.ChatSession
		if err := rows.Scan(&cs.ID, &cs.UserID, &cs.Name, &cs.CreatedAt, &cs.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, &cs)
	}
	return res, rows.Err()
}

func (s *sessions) Rename(ctx context.Context, userID, sessionID, name string) (*model.ChatSession, error) {
	var out model.ChatSession
	row := s.db.QueryRowContext(ctx, `
        UPDATE chat_sessions SET session_name=$3, updated_at=now()
        WHERE user_id=$1 AND id=$2
        RETURNING id, user_id, session_name, created_at, updated_at
    `, userID, sessionID, name)
	if err := row.Scan(&out.ID, &out.UserID, &out.Name, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

func (s *sessions) Touch(ctx context.Context, userID, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE chat_sessions SET updated_at=now() WHERE user_id=$1 AND id=$2
    `, userID, sessionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *sessions) Delete(ctx context.Context, userID, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `
        DELETE FROM chat_sessions WHERE user_id=$1 AND id=$2
    `, userID, sessionID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// --- Messages ---

type messages struct{ db *sql.DB }

func (m *messages) Append(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error) {
	id := msg.ID
	if id == "" {
		id = uuid.New().String()
	}
	var created time.Time
	row := m.db.QueryRowContext(ctx, `
        INSERT INTO chat_messages (id, session_id, user_id, role, content)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at
    `, id, msg.SessionID, msg.UserID, msg.Role, msg.Text)
	if err := row.Scan(&created); err != nil {
		return nil, mapErr(err)
	}
	out := *msg
	out.ID = id
	out.CreatedAt = created
	return &out, nil
}

func (m *messages) List(ctx context.Context, sessionID string) ([]*model.ChatMessage, error) {
	rows, err := m.db.QueryContext(ctx, `
        SELECT id, session_id, user_id, role, content, created_at
        FROM chat_messages WHERE session_id=$1 ORDER BY created_at ASC
    `, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []*model.ChatMessage
	for rows.Next() {
		var cm model.ChatMessage
		if err := rows.Scan(&cm.ID, &cm.SessionID, &cm.UserID, &cm.Role, &cm.Text, &cm.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &cm)
	}
	return res, rows.Err()
}

func (m *messages) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id=$1`, sessionID)
	return mapErr(err)
}

// --- Retreats ---

type retreats struct{ db *sql.DB }

func (r *retreats) BulkInsert(ctx context.Context, rs []*model.Retreat) ([]*model.Retreat, error) {
	if len(rs) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]*model.Retreat, 0, len(rs))
	for _, in := range rs {
		id := in.ID
		if id == "" {
			id = uuid.New().String()
		}
		var created time.Time
		row := tx.QueryRowContext(ctx, `
            INSERT INTO user_retreats (id, user_id, session_id, title, location, date, link, image_url)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
            RETURNING created_at
        `, id, in.UserID, in.SessionID, in.Title, in.Location, in.Date, in.Link, in.Image)
		if err := row.Scan(&created); err != nil {
			return nil, mapErr(err)
		}
		cp := *in
		cp.ID = id
		cp.CreatedAt = created
		out = append(out, &cp)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *retreats) List(ctx context.Context, sessionID string) ([]*model.Retreat, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, user_id, session_id, title, location, date, link, image_url, created_at
        FROM user_retreats WHERE session_id=$1 ORDER BY created_at ASC
    `, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []*model.Retreat
	for rows.Next() {
		var rt model.Retreat
		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.SessionID, &rt.Title, &rt.Location, &rt.Date, &rt.Link, &rt.Image, &rt.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &rt)
	}
	return res, rows.Err()
}

func (r *retreats) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_retreats WHERE session_id=$1`, sessionID)
	return mapErr(err)
}

// --- Payments ---

type payments struct{ db *sql.DB }

func (p *payments) Insert(ctx context.Context, m *model.Payment) (*model.Payment, error) {
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	var created time.Time
	row := p.db.QueryRowContext(ctx, `
        INSERT INTO payments (id, user_id, amount, status, payment_method)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at
    `, id, m.UserID, m.Amount, m.Status, m.Method)
	if err := row.Scan(&created); err != nil {
		return nil, mapErr(err)
	}
	out := *m
	out.ID = id
	out.CreatedAt = created
	return &out, nil
}

func (p *payments) ListByUser(ctx context.Context, userID string) ([]*model.Payment, error) {
	rows, err := p.db.QueryContext(ctx, `
        SELECT id, user_id, amount, status, payment_method, created_at
        FROM payments WHERE user_id=$1 ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []*model.Payment
	for rows.Next() {
		var pm model.Payment
		if err := rows.Scan(&pm.ID, &pm.UserID, &pm.Amount, &pm.Status, &pm.Method, &pm.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &pm)
	}
	return res, rows.Err()
}
