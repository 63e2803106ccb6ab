package domain

// Action is the kind of mutation a change notification describes.
// The string value is what subscribers see in the "type" field.
type Action string

const (
	ActionCreated  Action = "added"
	ActionModified Action = "modified"
	ActionRemoved  Action = "removed"
)

func (a Action) String() string { return string(a) }

func (a Action) IsValid() bool {
	switch a {
	case ActionCreated, ActionModified, ActionRemoved:
		return true
	}
	return false
}

// SaveAction maps a save notification to its action kind.
func SaveAction(created bool) Action {
	if created {
		return ActionCreated
	}
	return ActionModified
}
