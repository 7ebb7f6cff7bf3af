package game

// ActionType names an action a player may submit.
type ActionType string

const (
	ActionKeepHand             ActionType = "keepHand"
	ActionRedraw               ActionType = "redraw"
	ActionDrawCards            ActionType = "drawCards"
	ActionDeployResource       ActionType = "deployResource"
	ActionDoneReorder          ActionType = "doneReorder"
	ActionPlayCard             ActionType = "playCard"
	ActionPlayAbility          ActionType = "playAbility"
	ActionResolveMission       ActionType = "resolveMission"
	ActionChallenge            ActionType = "challenge"
	ActionDefend               ActionType = "defend"
	ActionChallengePass        ActionType = "challengePass"
	ActionPlayEventInChallenge ActionType = "playEventInChallenge"
	ActionPass                 ActionType = "pass"
	ActionChallengeCylon       ActionType = "challengeCylon"
	ActionPassCylon            ActionType = "passCylon"
)

// Valid reports whether t names a known action.
func (t ActionType) Valid() bool {
	switch t {
	case ActionKeepHand, ActionRedraw, ActionDrawCards, ActionDeployResource, ActionDoneReorder,
		ActionPlayCard, ActionPlayAbility, ActionResolveMission, ActionChallenge, ActionDefend,
		ActionChallengePass, ActionPlayEventInChallenge, ActionPass, ActionChallengeCylon, ActionPassCylon:
		return true
	}
	return false
}

// Action is a concrete request from a player. Only the fields relevant to
// Type are read.
type Action struct {
	Type ActionType `json:"type"`

	// deployResource, playCard, playEventInChallenge
	HandIndex int `json:"handIndex"`
	// deployResource
	AsSupply         bool `json:"asSupply"`
	TargetStackIndex *int `json:"targetStackIndex,omitempty"`

	// playAbility
	SourceInstanceID int `json:"sourceInstanceId"`
	// playCard, playAbility, playEventInChallenge
	TargetInstanceID *int `json:"targetInstanceId,omitempty"`

	// resolveMission, challenge, challengeCylon
	InstanceID int `json:"instanceId"`
	// challenge
	OpponentIndex int `json:"opponentIndex"`
	// defend; nil declines
	DefenderInstanceID *int `json:"defenderInstanceId"`
	// challengeCylon
	ThreatIndex int `json:"threatIndex"`
}

// ValidAction describes one legal action for a viewer together with the
// choices that make it concrete. Targets maps a hand index (card plays) or a
// source instance id (abilities) to the instance ids it may target; entries
// exist only for choices that require a target.
type ValidAction struct {
	Type          ActionType    `json:"type"`
	Description   string        `json:"description"`
	HandIndices   []int         `json:"handIndices,omitempty"`
	InstanceIDs   []int         `json:"instanceIds,omitempty"`
	StackIndices  []int         `json:"stackIndices,omitempty"`
	ThreatIndices []int         `json:"threatIndices,omitempty"`
	Targets       map[int][]int `json:"targets,omitempty"`
	OpponentIndex int           `json:"opponentIndex"`
	AsSupply      bool          `json:"asSupply,omitempty"`
}

// IntPtr returns a pointer to v, for optional action fields.
func IntPtr(v int) *int {
	return &v
}
