package models

type ProviderKind string

const (
	ProviderKindBuiltin ProviderKind = "builtin"
	ProviderKindGeneric ProviderKind = "generic"
)

type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeAPIKey AuthType = "api_key"
	AuthTypeBasic  AuthType = "basic"
)

// ProviderConfig is one enabled-provider declaration. It is loaded once at
// run start and never mutated.
type ProviderConfig struct {
	ID        string
	Name      string
	Kind      ProviderKind
	Enabled   bool
	BaseURL   string
	AuthType  AuthType
	AuthToken string
	// Models is empty for generic providers, which get a fixed pair of
	// chat/models routes instead of one route per model.
	Models []string
	// Ordinal is the numbered-block index of a generic provider. It selects
	// the provider's slot in the reserved numeric route-id bands.
	Ordinal  int
	SpecPath string
}

// TokenPrefix returns the loggable prefix of the auth token. Credentials are
// never logged in full.
func (p ProviderConfig) TokenPrefix() string {
	const visible = 6
	if len(p.AuthToken) <= visible {
		return p.AuthToken
	}
	return p.AuthToken[:visible] + "…"
}
