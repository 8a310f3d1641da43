// Package validate implements the static trust checks that run synchronously
// against an upload before any byte is persisted: declared content-type
// allowlisting, extension/type agreement, magic-byte signature verification,
// and streaming size enforcement.
//
// All checks are pure or streaming and perform no external I/O. Each check
// yields a StageResult with a stable machine-readable reason code; an upload
// is accepted only when every stage passes. The content-type registry is a
// static table validated at configuration-load time, so an unknown declared
// type is a startup error or an explicit deny, never a runtime surprise.
//
// # Usage
//
//	rules, err := validate.LoadRules("uploads.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx, ok := rules.Context("avatars")
//	res := validate.CheckContentType(declaredType, ctx.AllowedTypes)
package validate
