package auth

import (
	"database/sql"
	"time"

	enginerr "verdict/internal/errors"
	"verdict/internal/logging"
	"verdict/internal/storage"
)

// Token is one issued API token's stored record
type Token struct {
	KeyID     string     `json:"keyId"`
	Prefix    string     `json:"prefix"`
	Label     string     `json:"label"`
	CreatedAt time.Time  `json:"createdAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

// Revoked reports whether the token has been revoked
func (t *Token) Revoked() bool {
	return t.RevokedAt != nil
}

// Store persists issued tokens
type Store struct {
	db     *storage.DB
	logger *logging.Logger
}

// NewStore creates a token store over db
func NewStore(db *storage.DB, logger *logging.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Issue creates a new token with the given label. The raw token is
// returned exactly once; only its hash is stored.
func (s *Store) Issue(label string) (keyID, rawToken string, err error) {
	keyID, err = GenerateKeyID()
	if err != nil {
		return "", "", err
	}
	rawToken, prefix, err := GenerateToken()
	if err != nil {
		return "", "", err
	}
	hash, err := HashToken(rawToken)
	if err != nil {
		return "", "", err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(`
		INSERT INTO api_tokens (key_id, token_prefix, token_hash, label, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, keyID, prefix, hash, label, now)
	if err != nil {
		return "", "", enginerr.New(enginerr.IOFailure, "failed to store token", err)
	}

	s.logger.Info("token issued", map[string]interface{}{
		"keyId": keyID,
		"label": label,
	})
	return keyID, rawToken, nil
}

// Verify checks a presented raw token against the stored hashes. Prefix
// lookup narrows the candidates; bcrypt decides. Revoked tokens never
// verify.
func (s *Store) Verify(rawToken string) (*Token, error) {
	if !ValidFormat(rawToken) {
		return nil, enginerr.New(enginerr.Unauthorized, "malformed token", nil)
	}

	rows, err := s.db.Query(`
		SELECT key_id, token_prefix, token_hash, label, created_at, revoked_at
		FROM api_tokens
		WHERE token_prefix = ? AND revoked_at IS NULL
	`, ExtractPrefix(rawToken))
	if err != nil {
		return nil, enginerr.New(enginerr.IOFailure, "token lookup failed", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tok Token
		var hash, createdAt string
		var revokedAt sql.NullString
		if err := rows.Scan(&tok.KeyID, &tok.Prefix, &hash, &tok.Label, &createdAt, &revokedAt); err != nil {
			return nil, enginerr.New(enginerr.IOFailure, "token scan failed", err)
		}
		if !VerifyToken(rawToken, hash) {
			continue
		}
		tok.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		return &tok, nil
	}
	if err := rows.Err(); err != nil {
		return nil, enginerr.New(enginerr.IOFailure, "token lookup failed", err)
	}
	return nil, enginerr.New(enginerr.Unauthorized, "unknown or revoked token", nil)
}

// Revoke marks a token unusable by key ID
func (s *Store) Revoke(keyID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		"UPDATE api_tokens SET revoked_at = ? WHERE key_id = ? AND revoked_at IS NULL",
		now, keyID,
	)
	if err != nil {
		return enginerr.New(enginerr.IOFailure, "failed to revoke token", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return enginerr.New(enginerr.Unauthorized, "no active token with key ID "+keyID, nil)
	}
	s.logger.Info("token revoked", map[string]interface{}{"keyId": keyID})
	return nil
}

// List returns all issued tokens, optionally including revoked ones
func (s *Store) List(includeRevoked bool) ([]*Token, error) {
	query := `
		SELECT key_id, token_prefix, label, created_at, revoked_at
		FROM api_tokens
	`
	if !includeRevoked {
		query += " WHERE revoked_at IS NULL"
	}
	query += " ORDER BY created_at"

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, enginerr.New(enginerr.IOFailure, "token list failed", err)
	}
	defer rows.Close()

	var out []*Token
	for rows.Next() {
		var tok Token
		var createdAt string
		var revokedAt sql.NullString
		if err := rows.Scan(&tok.KeyID, &tok.Prefix, &tok.Label, &createdAt, &revokedAt); err != nil {
			return nil, enginerr.New(enginerr.IOFailure, "token scan failed", err)
		}
		tok.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if revokedAt.Valid {
			t, _ := time.Parse(time.RFC3339, revokedAt.String)
			tok.RevokedAt = &t
		}
		out = append(out, &tok)
	}
	return out, rows.Err()
}
