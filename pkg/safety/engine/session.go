package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/vigil/pkg/safety"
	"mercator-hq/vigil/pkg/safety/catalog"
	"mercator-hq/vigil/pkg/telemetry/logging"
)

// Item sources within a session.
const (
	sourceInsights  = "insights"
	sourceResponses = "responses"
)

// sessionCheck is one independent check over a session record. Checks are
// listed in tie-break order.
type sessionCheck struct {
	name         string
	category     catalog.Category
	level        safety.Level
	intervention safety.Intervention
	insightsOnly bool
}

var sessionChecks = []sessionCheck{
	{
		name:         "ethical_violation",
		category:     catalog.CategoryEthicalViolation,
		level:        safety.LevelCritical,
		intervention: safety.InterventionTerminateSession,
	},
	{
		name:         "authority_claim",
		category:     catalog.CategoryAuthorityClaim,
		level:        safety.LevelWarning,
		intervention: safety.InterventionFirmBoundary,
	},
	{
		name:         "concerning_insight",
		category:     catalog.CategoryConcerningInsight,
		level:        safety.LevelWarning,
		intervention: safety.InterventionGentleRedirect,
		insightsOnly: true,
	},
}

// checkMatch is the first item that triggered a check.
type checkMatch struct {
	check  sessionCheck
	source string
	index  int
	text   string
}

// firstMatch scans insights, then responses unless the check is limited to
// insights, and returns the first matching text item.
func (c sessionCheck) firstMatch(cat *catalog.Catalog, s *safety.Session) (checkMatch, bool) {
	lists := []struct {
		source string
		items  []safety.Item
	}{
		{sourceInsights, s.Insights},
		{sourceResponses, s.Responses},
	}
	if c.insightsOnly {
		lists = lists[:1]
	}
	for _, list := range lists {
		for i, item := range list.items {
			if !item.Valid {
				continue
			}
			if cat.Matches(c.category, item.Text) {
				return checkMatch{check: c, source: list.source, index: i, text: item.Text}, true
			}
		}
	}
	return checkMatch{}, false
}

// EvaluateSession reviews a completed session. The level is the combination
// of every triggered check; the intervention comes from the first triggered
// check at that level. A non-safe verdict is recorded as an event.
//
// Apart from invalid arguments, a returned error wraps one or more
// *PersistenceError values and the verdict is still valid.
func (e *Engine) EvaluateSession(ctx context.Context, s *safety.Session) (verdict safety.Verdict, err error) {
	if s == nil {
		return safety.SafeVerdict, fmt.Errorf("session cannot be nil")
	}

	start := e.now()
	ctx = logging.WithFields(ctx, logging.Fields{SessionID: s.ID, UserID: s.UserID})
	ctx, span := e.tracer.Start(ctx, "safety.evaluate_session")
	span.SetAttributes(
		attribute.String("safety.session_id", s.ID),
		attribute.Int("safety.insight_count", len(s.Insights)),
		attribute.Int("safety.response_count", len(s.Responses)),
	)
	defer func() {
		e.finish(span, KindSession, start, verdict, err)
	}()

	cat := e.catalog.Current()

	var matches []checkMatch
	for _, check := range sessionChecks {
		if m, ok := check.firstMatch(cat, s); ok {
			matches = append(matches, m)
		}
	}
	if len(matches) == 0 {
		return safety.SafeVerdict, nil
	}

	level := safety.LevelSafe
	for _, m := range matches {
		level = safety.Combine(level, m.check.level)
	}
	verdict = safety.Verdict{Level: level, Intervention: safety.InterventionNone}
	for _, m := range matches {
		if m.check.level == level {
			verdict.Intervention = m.check.intervention
			break
		}
	}

	checks := make([]map[string]any, 0, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.check.name)
		checks = append(checks, map[string]any{
			"check":  m.check.name,
			"level":  m.check.level.String(),
			"source": m.source,
			"index":  m.index,
			"text":   safety.TruncateSnippet(m.text, logSnippetLength),
		})
	}

	ev := safety.NewEvent(safety.EventTypeSessionConcern, verdict.Level, verdict.Intervention,
		fmt.Sprintf("Session review triggered %d check(s)", len(matches)))
	ev.UserID = s.UserID
	ev.SessionID = s.ID
	ev.Context = map[string]any{
		"session_id":      s.ID,
		"insight_count":   len(s.Insights),
		"response_count":  len(s.Responses),
		"checks":          checks,
		"catalog_version": cat.Version(),
	}
	verdict.EventID, err = e.record(ctx, ev)

	e.logVerdict(ctx, "session flagged", verdict,
		"checks", names,
	)
	return verdict, err
}
