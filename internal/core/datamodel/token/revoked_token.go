package token

import "time"

// RevokedToken is read and written through sqlx; the gorm tags only serve schema creation in tests.
type RevokedToken struct {
	TokenDigest string    `db:"token_digest" gorm:"column:token_digest;primaryKey"`
	RevokedAt   time.Time `db:"revoked_at" gorm:"column:revoked_at;not null"`
	ExpiresAt   time.Time `db:"expires_at" gorm:"column:expires_at;not null;index"`
}

func (RevokedToken) TableName() string {
	return "revoked_tokens"
}
