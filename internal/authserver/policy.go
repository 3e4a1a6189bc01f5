package authserver

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// UserIDHeader carries the presence user id when the caller is a trusted
// application backend holding the shared token.
const UserIDHeader = "X-Phoenix-User-Id"

var ErrForbidden = errors.New("subscription not permitted")

// Policy decides whether the caller behind r may subscribe socketID to
// channelName. The returned customData is signed as channel_data; request
// bodies never supply it.
type Policy func(r *http.Request, channelName string, socketID string) (customData any, err error)

// DenyAll is used when no policy is configured.
func DenyAll(*http.Request, string, string) (any, error) {
	return nil, ErrForbidden
}

// SharedTokenPolicy admits callers sending "Authorization: Bearer <token>".
// Presence subscriptions additionally need UserIDHeader.
func SharedTokenPolicy(token string) Policy {
	want := []byte(token)
	return func(r *http.Request, channelName string, _ string) (any, error) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
			return nil, ErrForbidden
		}
		if !strings.HasPrefix(channelName, "presence-") {
			return nil, nil
		}
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			return nil, fmt.Errorf("%w: presence channels require %s", ErrForbidden, UserIDHeader)
		}
		return map[string]string{"user_id": userID}, nil
	}
}
