package tenancy

import "context"

type ctxKey string

const identityKey ctxKey = "bookline.identity"

// Identity describes the authenticated caller: which organization the
// request is scoped to, the org's IANA timezone, and who is acting.
// It is supplied by the session middleware; the core never authenticates.
type Identity struct {
	OrgID      string
	Timezone   string
	ActorEmail string
}

// WithIdentity stores the caller identity in context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the caller identity if present.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	val := ctx.Value(identityKey)
	if val == nil {
		return Identity{}, false
	}
	id, ok := val.(Identity)
	return id, ok && id.OrgID != ""
}

// OrgIDFromContext extracts just the org id if present.
func OrgIDFromContext(ctx context.Context) (string, bool) {
	id, ok := IdentityFromContext(ctx)
	return id.OrgID, ok
}
