package protocol

import (
	"fmt"
	"strings"
)

// Credentials identify the backend application to the service. Only Key is
// ever sent on the wire.
type Credentials struct {
	Key    string
	Secret string
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Key) == "" {
		return fmt.Errorf("%w: missing key", ErrConfiguration)
	}
	if strings.TrimSpace(c.Secret) == "" {
		return fmt.Errorf("%w: missing secret", ErrConfiguration)
	}
	return nil
}

// String never includes the secret.
func (c Credentials) String() string {
	return "Credentials{Key: " + c.Key + "}"
}

func (c Credentials) GoString() string {
	return c.String()
}
