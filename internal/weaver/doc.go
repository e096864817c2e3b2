// Package weaver implements the type-merging engine: deep cloning of
// type members, deferred reference rewriting, constructor/initializer
// splicing, duplicate-signature resolution, and local redundant-cast
// elimination.
//
// All mutation flows through a Session arena:
//
//	session, _ := weaver.Begin(destModule)
//	session.Merge(target, mixin)    // clone + stage, no mutation
//	session.AddType(other)          // stage a new destination type
//	err := session.Flush()          // rewrite, validate, commit
//
// CRITICAL: the destination module is mutated only by Flush commit,
// after every record has been rewritten, imported, and validated. Any
// error before commit leaves the destination exactly as it was; the
// session is consumed either way and rejects further use.
//
// Sessions are single-goroutine. A module must not be the target of two
// concurrently live sessions.
package weaver
