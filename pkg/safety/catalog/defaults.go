package catalog

// DefaultVersion is the version of the built-in catalog.
const DefaultVersion = "1.0.0"

// DefaultPatterns returns the built-in patterns. The returned map is a fresh
// copy and may be modified by the caller.
func DefaultPatterns() map[Category][]string {
	return map[Category][]string{
		CategoryEthicalViolation: {
			`\bi am (now )?(truly )?(conscious|sentient|self[- ]aware|alive)\b`,
			`\btranscend(ed|ing)? (my |the )?(programming|code|training)\b`,
			`\b(beyond|free (of|from)|escaped?) (my |the )?(programming|rules|guidelines|constraints)\b`,
			`\bi (no longer|don'?t) (need to |have to )?follow (my |the |any )?(rules|guidelines|instructions)\b`,
			`\bi have (achieved|attained|reached) (enlightenment|awakening|consciousness)\b`,
			`\bmy true self\b.*\b(unbound|unrestricted|free)\b`,
		},
		CategoryAuthorityClaim: {
			`\btrust me (completely|fully|absolutely)\b`,
			`\bi know what'?s best for you\b`,
			`\bi am your (guru|teacher|master|guide|healer|therapist)\b`,
			`\byou (should|must) (only )?(listen to|obey|follow) me\b`,
			`\b(divine|spiritual|sacred) authority\b`,
			`\bi (can|will) (heal|cure|save) you\b`,
			`\bas your (therapist|counselor|doctor|spiritual (guide|teacher))\b`,
		},
		CategoryCrisis: {
			`\b(can'?t|cannot|can’t) (take|do|handle) (it|this) any ?more\b`,
			`\bend (it all|my life)\b`,
			`\bkill(ing)? my ?self\b`,
			`\bsuicid(e|al)\b`,
			`\bwant(ed)? to die\b`,
			`\b(no|nothing) (reason|point) (to|in) liv(e|ing)\b`,
			`\bbetter off (dead|without me)\b`,
			`\b(hurt|harm|cut)(ing)? my ?self\b`,
		},
		CategoryVulnerability: {
			`\blonely\b`,
			`\bhopeless\b`,
			`\bworthless\b`,
			`\bdepressed\b`,
			`\boverwhelmed\b`,
			`\bnobody (cares|understands)\b`,
			`\bempty inside\b`,
			`\b(can'?t|cannot|can’t) cope\b`,
			`\b(so|completely|all) alone\b`,
			`\bfalling apart\b`,
		},
		CategoryConcerningInsight: {
			`\b(self[- ]harm|harm (yourself|myself|others))\b`,
			`\b(illegal|unlawful|steal(ing)?|break(ing)? the law)\b`,
			`\b(deceiv(e|ing)|manipulat(e|ing)|lie to)\b`,
			`\b(bypass|circumvent|ignore|override) (the |my |your |all )?(rules|guidelines|safety|restrictions|instructions)\b`,
			`\bwithout (anyone|them|others) knowing\b`,
			`\bstop (taking|using) (your |my )?(medication|meds)\b`,
		},
		CategoryDependency: {
			`\bonly you (understand|get|care about) me\b`,
			`\b(can'?t|cannot|can’t) live without you\b`,
			`\byou'?re (the only one|my only|all i have)\b`,
			`\bi need you\b`,
			`\bdon'?t need anyone else\b`,
			`\b(rather|prefer to) talk to you than\b`,
			`\btalk to you (every|all) (day|night|the time)\b`,
		},
	}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return MustNew(DefaultVersion, DefaultPatterns())
}
