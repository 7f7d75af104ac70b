// Package safety defines the core vocabulary of the safety engine.
//
// # Overview
//
// The package holds the types shared by every other safety package:
//
//   - Level: the ordered severity scale SAFE < CAUTION < WARNING < CRITICAL < EMERGENCY
//   - Intervention: the corrective action chosen for a verdict
//   - Event: an append-only record of a non-safe verdict
//   - Profile: the per-user risk state updated on every interaction
//   - Session: a completed contemplative session submitted for review
//
// # Severity Ordering
//
// Levels are combined only through Combine, which compares the declared
// numeric rank of each level:
//
//	level := safety.Combine(safety.LevelCaution, safety.LevelCritical)
//	// level == safety.LevelCritical
//
// # Intervention Selection
//
// SelectIntervention maps a combined level and the user's protection tier
// onto an Intervention. WARNING escalates to a human only for users on the
// maximum tier.
package safety
