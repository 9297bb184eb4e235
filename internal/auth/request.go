package auth

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// GuestHeader carries a guest's ID between requests.
const GuestHeader = "X-Guest-ID"

var guestID = regexp.MustCompile(`^guest-[0-9a-f-]{36}$`)

// Authenticator resolves the identity of incoming requests.
type Authenticator struct {
	Validator   Validator
	AllowGuests bool
}

// BearerToken extracts the token from the Authorization header, falling
// back to the "token" query parameter browsers use for websockets.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// Authenticate returns the identity for r. A request without a token is a
// guest when guests are allowed: it keeps the ID it presents in
// GuestHeader, or is given a fresh one.
func (a *Authenticator) Authenticate(r *http.Request) (Identity, error) {
	if token := BearerToken(r); token != "" {
		return a.Validator.Validate(r.Context(), token)
	}
	if !a.AllowGuests {
		return Identity{}, ErrUnauthenticated
	}
	id := r.Header.Get(GuestHeader)
	if id == "" {
		id = r.URL.Query().Get("guest")
	}
	if !guestID.MatchString(id) {
		id = NewGuestID()
	}
	return Identity{UserID: id, Guest: true}, nil
}

// NewGuestID returns a fresh guest user ID.
func NewGuestID() string {
	return "guest-" + uuid.NewString()
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
