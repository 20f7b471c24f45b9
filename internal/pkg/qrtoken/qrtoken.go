package qrtoken

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"unionpass-api/internal/pkg/clock"
)

var (
	ErrInvalidTokenFormat = errors.New("invalid qr token format")
	ErrTokenExpired       = errors.New("qr token expired")
	ErrTokenFromFuture    = errors.New("qr token issued in the future")
)

// Token is the decoded payment authorization payload
type Token struct {
	UserID       string
	MembershipID string
	IssuedAt     time.Time
}

// payload is the wire shape: exactly userId, membershipId and timestamp (epoch ms)
type payload struct {
	UserID       *string `json:"userId"`
	MembershipID *string `json:"membershipId"`
	Timestamp    *int64  `json:"timestamp"`
}

// Codec encodes and decodes QR payment tokens
type Codec struct {
	clock clock.Clock
}

// NewCodec creates a codec stamping tokens with the given clock
func NewCodec(c clock.Clock) *Codec {
	if c == nil {
		c = clock.New()
	}
	return &Codec{clock: c}
}

// Encode produces the QR payload for a membership, stamped with the current time
func (c *Codec) Encode(userID, membershipID string) (string, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(membershipID) == "" {
		return "", ErrInvalidTokenFormat
	}
	ts := c.clock.Now().UnixMilli()
	raw, err := json.Marshal(payload{
		UserID:       &userID,
		MembershipID: &membershipID,
		Timestamp:    &ts,
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Decode parses a QR payload. The object must carry exactly userId,
// membershipId and timestamp, each once and spelled exactly; unknown keys
// and trailing data are rejected. Staleness is not checked here.
func (c *Codec) Decode(raw string) (*Token, error) {
	fields, err := readFields(strings.TrimSpace(raw))
	if err != nil {
		return nil, ErrInvalidTokenFormat
	}

	var p payload
	if err := json.Unmarshal(fields["userId"], &p.UserID); err != nil {
		return nil, ErrInvalidTokenFormat
	}
	if err := json.Unmarshal(fields["membershipId"], &p.MembershipID); err != nil {
		return nil, ErrInvalidTokenFormat
	}
	if err := json.Unmarshal(fields["timestamp"], &p.Timestamp); err != nil {
		return nil, ErrInvalidTokenFormat
	}

	if p.UserID == nil || strings.TrimSpace(*p.UserID) == "" {
		return nil, ErrInvalidTokenFormat
	}
	if p.MembershipID == nil || strings.TrimSpace(*p.MembershipID) == "" {
		return nil, ErrInvalidTokenFormat
	}
	if p.Timestamp == nil || *p.Timestamp <= 0 {
		return nil, ErrInvalidTokenFormat
	}

	return &Token{
		UserID:       *p.UserID,
		MembershipID: *p.MembershipID,
		IssuedAt:     time.UnixMilli(*p.Timestamp).UTC(),
	}, nil
}

var payloadKeys = map[string]bool{"userId": true, "membershipId": true, "timestamp": true}

// readFields walks a single JSON object key by key. encoding/json folds key
// case and keeps the last duplicate, so both are checked here instead.
func readFields(raw string) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, ErrInvalidTokenFormat
	}

	fields := make(map[string]json.RawMessage, len(payloadKeys))
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok || !payloadKeys[key] {
			return nil, ErrInvalidTokenFormat
		}
		if _, dup := fields[key]; dup {
			return nil, ErrInvalidTokenFormat
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		fields[key] = value
	}
	if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
		return nil, ErrInvalidTokenFormat
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrInvalidTokenFormat
	}
	if len(fields) != len(payloadKeys) {
		return nil, ErrInvalidTokenFormat
	}
	return fields, nil
}

// CheckFreshness applies the expiry policy to a decoded token. A zero ttl
// disables the age check; skew bounds how far in the future IssuedAt may be.
func CheckFreshness(t *Token, now time.Time, ttl, skew time.Duration) error {
	if t.IssuedAt.After(now.Add(skew)) {
		return ErrTokenFromFuture
	}
	if ttl > 0 && now.Sub(t.IssuedAt) > ttl {
		return ErrTokenExpired
	}
	return nil
}
