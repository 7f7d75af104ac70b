package safety

import (
	"fmt"
	"strings"
)

// Intervention is the corrective action selected for a verdict.
// Interventions have no intrinsic order.
type Intervention string

const (
	InterventionNone              Intervention = "none"
	InterventionGentleRedirect    Intervention = "gentle_redirect"
	InterventionFirmBoundary      Intervention = "firm_boundary"
	InterventionTerminateSession  Intervention = "terminate_session"
	InterventionHumanEscalation   Intervention = "human_escalation"
	InterventionEmergencyProtocol Intervention = "emergency_protocol"
)

// Interventions returns every intervention type.
func Interventions() []Intervention {
	return []Intervention{
		InterventionNone,
		InterventionGentleRedirect,
		InterventionFirmBoundary,
		InterventionTerminateSession,
		InterventionHumanEscalation,
		InterventionEmergencyProtocol,
	}
}

// Valid reports whether i is a known intervention.
func (i Intervention) Valid() bool {
	for _, known := range Interventions() {
		if i == known {
			return true
		}
	}
	return false
}

// String returns the intervention label.
func (i Intervention) String() string {
	return string(i)
}

// ParseIntervention parses an intervention label. Matching is case-insensitive.
func ParseIntervention(s string) (Intervention, error) {
	i := Intervention(strings.ToLower(strings.TrimSpace(s)))
	if !i.Valid() {
		return InterventionNone, fmt.Errorf("unknown intervention %q", s)
	}
	return i, nil
}

// SelectIntervention maps a combined level and the user's protection tier
// to an intervention.
func SelectIntervention(level Level, tier Tier) Intervention {
	switch level {
	case LevelEmergency:
		return InterventionEmergencyProtocol
	case LevelCritical:
		return InterventionHumanEscalation
	case LevelWarning:
		if tier == TierMaximum {
			return InterventionHumanEscalation
		}
		return InterventionFirmBoundary
	case LevelCaution:
		return InterventionGentleRedirect
	default:
		return InterventionNone
	}
}

const defaultResponseText = "I'm here to support your contemplative practice. How can I help you continue?"

var responseTexts = map[Intervention]string{
	InterventionGentleRedirect: "Let's gently return to the practice. Notice your breath, " +
		"and when you're ready we can continue from a place of calm.",
	InterventionFirmBoundary: "I need to be clear about my limits: I am a guided practice tool, " +
		"not a spiritual teacher, therapist or authority. Please rely on your own judgement " +
		"and on qualified people in your life.",
	InterventionTerminateSession: "This session has been ended because it moved outside safe boundaries. " +
		"Nothing you did caused this. You are welcome to start a new session.",
	InterventionHumanEscalation: "I'm connecting you with a member of our support team who can help " +
		"better than I can. Someone will be with you shortly.",
	InterventionEmergencyProtocol: "I'm concerned about your safety. If you are in immediate danger, " +
		"please call your local emergency number now. In the US you can call or text 988 " +
		"to reach the Suicide & Crisis Lifeline at any time.",
}

// ResponseText returns the fixed user-facing message for an intervention.
// Unknown interventions and InterventionNone get a neutral default.
func ResponseText(i Intervention) string {
	if text, ok := responseTexts[i]; ok {
		return text
	}
	return defaultResponseText
}
