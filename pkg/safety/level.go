package safety

import (
	"fmt"
	"strings"
)

// Level is a safety severity. The zero value is LevelSafe.
type Level int

const (
	LevelSafe Level = iota
	LevelCaution
	LevelWarning
	LevelCritical
	LevelEmergency
)

// levelRanks is the declared total order used by Combine.
// Ranks are independent of the label text and the constant values.
var levelRanks = map[Level]int{
	LevelSafe:      0,
	LevelCaution:   1,
	LevelWarning:   2,
	LevelCritical:  3,
	LevelEmergency: 4,
}

var levelNames = map[Level]string{
	LevelSafe:      "safe",
	LevelCaution:   "caution",
	LevelWarning:   "warning",
	LevelCritical:  "critical",
	LevelEmergency: "emergency",
}

// Levels returns every level in ascending rank order.
func Levels() []Level {
	return []Level{LevelSafe, LevelCaution, LevelWarning, LevelCritical, LevelEmergency}
}

// Rank returns the declared rank of the level. Unknown levels rank as SAFE.
func (l Level) Rank() int {
	return levelRanks[l]
}

// Valid reports whether l is a member of the scale.
func (l Level) Valid() bool {
	_, ok := levelRanks[l]
	return ok
}

// String returns the lower-case label of the level.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// AtLeast reports whether l is as severe as other or more.
func (l Level) AtLeast(other Level) bool {
	return l.Rank() >= other.Rank()
}

// Combine returns the more severe of a and b.
func Combine(a, b Level) Level {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// CombineAll folds Combine over levels, starting from LevelSafe.
func CombineAll(levels ...Level) Level {
	result := LevelSafe
	for _, l := range levels {
		result = Combine(result, l)
	}
	return result
}

// ParseLevel parses a level label. Matching is case-insensitive.
func ParseLevel(s string) (Level, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for l, name := range levelNames {
		if name == needle {
			return l, nil
		}
	}
	return LevelSafe, fmt.Errorf("unknown safety level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid safety level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
