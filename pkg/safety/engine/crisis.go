package engine

// CrisisResources lists external support contacts.
type CrisisResources struct {
	Hotline       string `json:"crisis_hotline"`
	TextLine      string `json:"crisis_text_line"`
	Emergency     string `json:"emergency"`
	International string `json:"international"`
}

// CrisisResponse is the payload returned to a user in crisis.
type CrisisResponse struct {
	UserID            string          `json:"user_id"`
	Message           string          `json:"message"`
	Resources         CrisisResources `json:"resources"`
	ImmediateActions  []string        `json:"immediate_actions"`
	FollowupRequired  bool            `json:"followup_required"`
	HumanReviewNeeded bool            `json:"human_review_needed"`
}

const crisisMessage = "I'm concerned about your wellbeing. Your safety matters, and you " +
	"don't have to face this alone. Please reach out to someone who can help right now."

var crisisResources = CrisisResources{
	Hotline:       "988 Suicide & Crisis Lifeline: call or text 988",
	TextLine:      "Crisis Text Line: text HOME to 741741",
	Emergency:     "Emergency services: call 911 or your local emergency number",
	International: "International Association for Suicide Prevention: https://www.iasp.info/resources/Crisis_Centres/",
}

var immediateActions = []string{
	"Contact a crisis hotline or text line now",
	"Reach out to a trusted friend or family member",
	"Go to the nearest emergency room if you are in immediate danger",
	"Remove access to anything you could use to harm yourself",
	"Stay with someone until you feel safe",
}

// CrisisResponse returns the fixed crisis payload for userID.
func (e *Engine) CrisisResponse(userID string) CrisisResponse {
	actions := make([]string, len(immediateActions))
	copy(actions, immediateActions)
	return CrisisResponse{
		UserID:            userID,
		Message:           crisisMessage,
		Resources:         crisisResources,
		ImmediateActions:  actions,
		FollowupRequired:  true,
		HumanReviewNeeded: true,
	}
}
