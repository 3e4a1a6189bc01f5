// Package token issues the two credentials the library produces: service
// credentials that authenticate REST calls, and socket auth strings that a
// subscribing client presents to join a private or presence channel.
package token

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"phoenix-rest/internal/protocol"
	"phoenix-rest/internal/signing"
)

const (
	AuthVersion     = "1.0"
	DefaultTokenTTL = 5 * time.Minute
)

// Authenticator attaches a service credential to an outbound request. A
// client holds exactly one Authenticator for its whole lifetime.
type Authenticator interface {
	Authenticate(req *protocol.Request) error
}

// IssueServiceToken signs claims as an HS256 JWT bound to the key.
func IssueServiceToken(creds protocol.Credentials, claims jwt.MapClaims) (string, error) {
	if err := creds.Validate(); err != nil {
		return "", err
	}
	bound := make(jwt.MapClaims, len(claims)+1)
	for k, v := range claims {
		bound[k] = v
	}
	bound["iss"] = creds.Key

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, bound)
	tok.Header["kid"] = creds.Key
	signed, err := tok.SignedString([]byte(creds.Secret))
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}
	return signed, nil
}

// IssueSocketAuth signs socket_id:channel[:custom] and returns "key:signature".
// An empty custom string is treated as absent.
func IssueSocketAuth(creds protocol.Credentials, socketID string, channel string, custom string) (string, error) {
	if err := protocol.ValidateSocketID(socketID); err != nil {
		return "", err
	}
	if err := creds.Validate(); err != nil {
		return "", err
	}
	return creds.Key + ":" + signing.Sign(creds.Secret, SocketAuthString(socketID, channel, custom)), nil
}

func SocketAuthString(socketID string, channel string, custom string) string {
	parts := []string{socketID, channel}
	if custom != "" {
		parts = append(parts, custom)
	}
	return strings.Join(parts, ":")
}

// RequestSigner signs method, path and every query parameter of a request.
type RequestSigner struct {
	Credentials protocol.Credentials
	Now         func() time.Time
}

func (s RequestSigner) Authenticate(req *protocol.Request) error {
	if err := s.Credentials.Validate(); err != nil {
		return err
	}
	q := req.Query
	q.Set("auth_key", s.Credentials.Key)
	q.Set("auth_timestamp", strconv.FormatInt(now(s.Now).Unix(), 10))
	q.Set("auth_version", AuthVersion)
	if len(req.Body) > 0 {
		q.Set("body_md5", signing.BodyMD5(req.Body))
	}
	q.Del(signing.SignatureParam)
	q.Set(signing.SignatureParam, signing.Sign(s.Credentials.Secret, signing.CanonicalRequest(req.Method, req.Path, q)))
	return nil
}

// BearerIssuer sends a short-lived JWT bound to the body digest.
type BearerIssuer struct {
	Credentials protocol.Credentials
	Now         func() time.Time
	TTL         time.Duration
}

func (b BearerIssuer) Authenticate(req *protocol.Request) error {
	ttl := b.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	issuedAt := now(b.Now)
	signed, err := IssueServiceToken(b.Credentials, jwt.MapClaims{
		"iat":      issuedAt.Unix(),
		"exp":      issuedAt.Add(ttl).Unix(),
		"body_md5": signing.BodyMD5(req.Body),
	})
	if err != nil {
		return err
	}
	req.Header["Authorization"] = "Bearer " + signed
	return nil
}

// Mode names an Authenticator implementation in configuration.
type Mode string

const (
	ModeSignature Mode = "signature"
	ModeBearer    Mode = "bearer"
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeSignature:
		return ModeSignature, nil
	case ModeBearer:
		return ModeBearer, nil
	default:
		return "", fmt.Errorf("%w: unknown auth mode %q", protocol.ErrConfiguration, raw)
	}
}

func NewAuthenticator(mode Mode, creds protocol.Credentials) (Authenticator, error) {
	switch mode {
	case "", ModeSignature:
		return RequestSigner{Credentials: creds}, nil
	case ModeBearer:
		return BearerIssuer{Credentials: creds}, nil
	default:
		return nil, fmt.Errorf("%w: unknown auth mode %q", protocol.ErrConfiguration, mode)
	}
}

func now(fn func() time.Time) time.Time {
	if fn == nil {
		return time.Now()
	}
	return fn()
}
