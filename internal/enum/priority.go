package enum

type EmailPriority string

const (
	EmailPriorityHigh   EmailPriority = "high"
	EmailPriorityNormal EmailPriority = "normal"
	EmailPriorityLow    EmailPriority = "low"
)

func (e EmailPriority) String() string {
	return string(e)
}
