package game

// QuestStatus is the lifecycle state of a quest. Transitions are driven
// by gameplay, not enforced here.
type QuestStatus string

const (
	QuestAvailable QuestStatus = "available"
	QuestActive    QuestStatus = "active"
	QuestCompleted QuestStatus = "completed"
	QuestFailed    QuestStatus = "failed"
)

const (
	MinQuestXP = 50
	MaxQuestXP = 500
)

// Quest is a generated objective scoped to a player and genre.
type Quest struct {
	ID               int64       `json:"id"`
	Player           string      `json:"player"`
	Genre            string      `json:"genre"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	StartingLocation string      `json:"starting_location"`
	RelatedLocations []string    `json:"related_locations"`
	RequiredItems    []string    `json:"required_items"`
	SuccessCondition string      `json:"success_condition"`
	XPReward         int         `json:"xp_reward"`
	Status           QuestStatus `json:"status"`
}

// ClampXP bounds the reward to the allowed range, defaulting to 100 when
// the generator produced nothing usable.
func ClampXP(xp int) int {
	if xp <= 0 {
		return 100
	}
	if xp < MinQuestXP {
		return MinQuestXP
	}
	if xp > MaxQuestXP {
		return MaxQuestXP
	}
	return xp
}
