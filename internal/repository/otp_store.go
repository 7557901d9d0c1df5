package repository

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// OTPStore issues and verifies completion-confirmation codes. Codes are
// hashed at rest; expiry is delegated to the Redis key TTL, so a missing
// key means expired or never issued.
type OTPStore interface {
	Issue(ctx context.Context, ticketID string) (code string, expiresAt time.Time, err error)
	Verify(ctx context.Context, ticketID, code string) (bool, error)
}

type otpStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOTPStore builds a Redis-backed OTP store.
func NewOTPStore(client *redis.Client, ttl time.Duration) OTPStore {
	return &otpStore{client: client, ttl: ttl}
}

func otpKey(ticketID string) string {
	return "otp:ticket:" + ticketID
}

func (s *otpStore) Issue(ctx context.Context, ticketID string) (string, time.Time, error) {
	code, err := generateCode()
	if err != nil {
		return "", time.Time{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.client.Set(ctx, otpKey(ticketID), string(hash), s.ttl).Err(); err != nil {
		return "", time.Time{}, err
	}
	return code, time.Now().Add(s.ttl), nil
}

func (s *otpStore) Verify(ctx context.Context, ticketID, code string) (bool, error) {
	hash, err := s.client.Get(ctx, otpKey(ticketID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		return false, nil
	}
	return true, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
