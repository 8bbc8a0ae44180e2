package command

// Intent is a recognized command intent. The set is closed: anything the
// language layer produces outside of it maps to IntentUnknown.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentNavigate
	IntentShow
)

// ParseIntent maps an intent label from the language layer to an Intent.
func ParseIntent(label string) Intent {
	switch label {
	case "navigate":
		return IntentNavigate
	case "show":
		return IntentShow
	default:
		return IntentUnknown
	}
}

func (i Intent) String() string {
	switch i {
	case IntentNavigate:
		return "navigate"
	case IntentShow:
		return "show"
	default:
		return "unknown"
	}
}
