package rules

import "github.com/aqasim81/ddlguard/internal/checker"

// NewDefaultRegistry returns a Registry with all built-in idempotency rules.
func NewDefaultRegistry() *checker.Registry {
	r := checker.NewRegistry()
	r.Register(NewCreatePolicyRule())
	r.Register(NewCreateTriggerRule())
	r.Register(NewCreateIndexRule())
	r.Register(NewCreateTableRule())
	r.Register(NewDropObjectRule())
	r.Register(NewAddColumnRule())
	r.Register(NewAddConstraintRule())
	r.Register(NewRenameRule())

	return r
}
