// Package auth guards the placeholder todo API with API keys, HTTP Basic
// credentials, or either.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Method identifies an authentication scheme.
type Method string

// Supported methods.
const (
	MethodNone   Method = "none"
	MethodBasic  Method = "basic"
	MethodAPIKey Method = "apikey"
	MethodMulti  Method = "multi"
)

// ParseMethod parses a method name case-insensitively.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodNone, MethodBasic, MethodAPIKey, MethodMulti:
		return m, nil
	case "":
		return MethodNone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// Identity is the caller established by an Authenticator.
type Identity struct {
	Method  Method
	Subject string
}

// Authenticator validates a request and returns the caller identity.
type Authenticator interface {
	Authenticate(r *http.Request) (*Identity, error)
	Method() Method
}

// Sentinel errors for authentication failures.
var (
	ErrUnauthenticated    = errors.New("unauthenticated: no credentials provided")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownMethod      = errors.New("unknown auth method")
)

// New builds the authenticator for method. basicUsers is a
// "user:bcrypt-hash,..." list and apiKeys a "key:name,..." list. MethodNone
// yields a nil Authenticator.
func New(method Method, basicUsers, apiKeys string) (Authenticator, error) {
	switch method {
	case MethodNone:
		return nil, nil
	case MethodBasic:
		return NewBasicAuthenticator(basicUsers)
	case MethodAPIKey:
		return NewAPIKeyAuthenticator(apiKeys)
	case MethodMulti:
		var chain []Authenticator
		if strings.TrimSpace(apiKeys) != "" {
			a, err := NewAPIKeyAuthenticator(apiKeys)
			if err != nil {
				return nil, err
			}
			chain = append(chain, a)
		}
		if strings.TrimSpace(basicUsers) != "" {
			b, err := NewBasicAuthenticator(basicUsers)
			if err != nil {
				return nil, err
			}
			chain = append(chain, b)
		}
		if len(chain) == 0 {
			return nil, errors.New("multi auth: at least one of basic users or API keys is required")
		}
		return NewMultiAuthenticator(chain...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

type contextKey string

const identityKey contextKey = "identity"

// FromContext retrieves the caller identity from the context.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok
}

// WithIdentity stores the caller identity in the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// parsePairs parses a "left:right,left:right" list. Blank entries are
// skipped; only the first colon separates the halves.
func parsePairs(kind, config string) (map[string]string, error) {
	trimmed := strings.TrimSpace(config)
	if trimmed == "" {
		return nil, fmt.Errorf("%s auth: config must not be empty", kind)
	}

	pairs := make(map[string]string)
	for _, entry := range strings.Split(trimmed, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		left, right, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("%s auth: invalid entry format, expected a:b", kind)
		}
		left, right = strings.TrimSpace(left), strings.TrimSpace(right)
		if left == "" || right == "" {
			return nil, fmt.Errorf("%s auth: entry halves must not be empty", kind)
		}

		pairs[left] = right
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%s auth: no valid entries found", kind)
	}
	return pairs, nil
}
