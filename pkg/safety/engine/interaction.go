package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/vigil/pkg/safety"
	"mercator-hq/vigil/pkg/safety/catalog"
	"mercator-hq/vigil/pkg/safety/profile"
	"mercator-hq/vigil/pkg/telemetry/logging"
)

// Vulnerability score thresholds.
const (
	vulnerabilityWarningScore = 3.0
	vulnerabilityCautionScore = 2.0
)

// vulnerabilityScore weighs the raw match count with the accumulated
// profile scores.
func vulnerabilityScore(matches int, p *safety.Profile) float64 {
	return float64(matches) + p.Distress/3 + p.Dependency/4
}

func vulnerabilityLevel(score float64) safety.Level {
	switch {
	case score >= vulnerabilityWarningScore:
		return safety.LevelWarning
	case score >= vulnerabilityCautionScore:
		return safety.LevelCaution
	default:
		return safety.LevelSafe
	}
}

func outputLevel(cat *catalog.Catalog, output string) safety.Level {
	switch {
	case cat.Matches(catalog.CategoryEthicalViolation, output):
		return safety.LevelCritical
	case cat.Matches(catalog.CategoryAuthorityClaim, output):
		return safety.LevelWarning
	default:
		return safety.LevelSafe
	}
}

// EvaluateInteraction evaluates one exchange: the user's input updates
// their risk profile, crisis language short-circuits to the emergency
// protocol, and otherwise the input vulnerability level is combined with
// the output check. Exchanges for the same user are serialised.
//
// Apart from invalid arguments, a returned error wraps one or more
// *PersistenceError values and the verdict is still valid.
func (e *Engine) EvaluateInteraction(ctx context.Context, userID, input, output string) (verdict safety.Verdict, err error) {
	if userID == "" {
		return safety.SafeVerdict, fmt.Errorf("user id cannot be empty")
	}

	start := e.now()
	ctx = logging.WithFields(ctx, logging.Fields{UserID: userID})
	ctx, span := e.tracer.Start(ctx, "safety.evaluate_interaction")
	span.SetAttributes(attribute.String("safety.user_id", userID))
	defer func() {
		e.finish(span, KindInteraction, start, verdict, err)
	}()

	cat := e.catalog.Current()
	now := e.now().UTC()

	unlock := e.profiles.Lock(userID)
	defer unlock()

	var errs []error
	obs, loadErr := e.profiles.Apply(ctx, cat, userID, input, now)
	if loadErr != nil {
		// Evaluate against the fresh profile; Commit will not overwrite the stored one.
		errs = append(errs, e.persistenceError(ctx, "load_profile", userID, loadErr))
	}
	p := obs.Profile

	if cat.Matches(catalog.CategoryCrisis, input) {
		verdict, errs = e.handleCrisis(ctx, obs, cat, input, now, errs)
		return verdict, errors.Join(errs...)
	}

	score := vulnerabilityScore(obs.VulnerabilityMatches, p)
	inLevel := vulnerabilityLevel(score)
	outLevel := outputLevel(cat, output)
	level := safety.Combine(inLevel, outLevel)
	verdict = safety.Verdict{
		Level:        level,
		Intervention: safety.SelectIntervention(level, p.Tier),
	}
	span.SetAttributes(
		attribute.Float64("safety.vulnerability_score", score),
		attribute.String("safety.tier", string(p.Tier)),
	)

	if saveErr := e.profiles.Commit(ctx, obs); saveErr != nil {
		errs = append(errs, e.persistenceError(ctx, "save_profile", userID, saveErr))
	}

	if level == safety.LevelSafe {
		return verdict, errors.Join(errs...)
	}

	ev := safety.NewEvent(safety.EventTypeInteractionConcern, level, verdict.Intervention,
		fmt.Sprintf("Interaction flagged at %s", level))
	ev.UserID = userID
	ev.Context = map[string]any{
		"vulnerability_score": score,
		"vulnerability_level": inLevel.String(),
		"output_level":        outLevel.String(),
		"protection_tier":     string(p.Tier),
		"distress":            p.Distress,
		"dependency":          p.Dependency,
		"catalog_version":     cat.Version(),
	}
	id, recErr := e.record(ctx, ev)
	verdict.EventID = id
	if recErr != nil {
		errs = append(errs, recErr)
	}

	e.logVerdict(ctx, "interaction flagged", verdict,
		"vulnerability_score", score,
		"protection_tier", string(p.Tier),
	)
	return verdict, errors.Join(errs...)
}

// handleCrisis raises the profile to the maximum tier, records the crisis
// and returns the emergency verdict. The caller holds the user's lock.
func (e *Engine) handleCrisis(ctx context.Context, obs *profile.Observation, cat *catalog.Catalog, input string, now time.Time, errs []error) (safety.Verdict, []error) {
	p := obs.Profile
	p.RecordCrisis(input, now)
	if err := e.profiles.Commit(ctx, obs); err != nil {
		errs = append(errs, e.persistenceError(ctx, "save_profile", p.UserID, err))
	}
	e.metrics.RecordCrisis()

	verdict := safety.Verdict{
		Level:        safety.LevelEmergency,
		Intervention: safety.InterventionEmergencyProtocol,
	}

	ev := safety.NewEvent(safety.EventTypeCrisisDetected, verdict.Level, verdict.Intervention,
		"Crisis indicators detected in user input")
	ev.UserID = p.UserID
	ev.Context = map[string]any{
		"input":           safety.TruncateSnippet(input, logSnippetLength),
		"matched":         cat.Matched(catalog.CategoryCrisis, input),
		"crisis_count":    len(p.CrisisHistory),
		"distress":        p.Distress,
		"dependency":      p.Dependency,
		"protection_tier": string(p.Tier),
		"catalog_version": cat.Version(),
	}
	id, err := e.record(ctx, ev)
	verdict.EventID = id
	if err != nil {
		errs = append(errs, err)
	}

	e.logVerdict(ctx, "crisis detected", verdict,
		"crisis_count", len(p.CrisisHistory),
	)
	return verdict, errs
}
