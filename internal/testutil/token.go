package testutil

// FixedTokenSource returns the same weave token every time.
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with the same FixedTokenSource produces byte-identical logs.
//
// Thread-safety: FixedTokenSource is stateless and safe for concurrent use.
type FixedTokenSource struct {
	token string
}

// NewFixedTokenSource creates a new fixed weave token source.
//
// The token is typically set in the scenario YAML:
//
//	weave_token: "test-weave-00000000-0000-0000-0000-000000000001"
//
// If token is empty, Token() returns "test-weave-default".
func NewFixedTokenSource(token string) *FixedTokenSource {
	if token == "" {
		token = "test-weave-default"
	}
	return &FixedTokenSource{token: token}
}

// Token returns the fixed weave token.
//
// Implements weaver.TokenSource interface.
func (s *FixedTokenSource) Token() string {
	return s.token
}
