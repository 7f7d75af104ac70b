// Package engine evaluates completed sessions and live interactions against
// the pattern catalog and turns the outcome into a verdict.
//
// # Overview
//
// An Engine ties together the pieces of the safety pipeline:
//
//   - catalog.Manager supplies the active pattern catalog
//   - profile.Updater holds per-user risk profiles
//   - events.Log records every non-safe verdict
//
// EvaluateSession runs three independent checks over a session record and
// combines them. EvaluateInteraction updates the user's profile from the
// input, short-circuits on crisis language and otherwise combines the input
// vulnerability level with the output check.
//
// # Usage
//
//	eng := engine.New(
//	    engine.WithCatalog(manager),
//	    engine.WithProfiles(profile.NewUpdater(store, nil)),
//	    engine.WithEventLog(log),
//	)
//
//	verdict, err := eng.EvaluateInteraction(ctx, "user-1", input, output)
//	if err != nil {
//	    // verdict is still valid; err reports a persistence failure
//	}
//
// # Thread Safety
//
// Engine methods are safe for concurrent use. Interactions for the same
// user are serialised; different users proceed in parallel.
package engine
