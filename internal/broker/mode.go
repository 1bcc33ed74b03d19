package broker

// LinkingMode selects how the broker locates credential material for a
// connection: a durable account link or an ephemeral one-time code.
type LinkingMode interface {
	isLinkingMode()
}

// Persistent looks up a durable ExternalAccountRecord. AccountID may be
// empty, in which case the broker asks its identity resolver for one.
type Persistent struct {
	AccountID string
}

// Encapsulation mints a handle from a one-time authorization code, falling
// back to the ephemeral cache and finally to a persistent record for the
// same logical account.
type Encapsulation struct {
	Code      string
	AccountID string
}

func (Persistent) isLinkingMode()    {}
func (Encapsulation) isLinkingMode() {}
