package game

// State is the controller's current phase. Exactly one is active at a time.
type State int

const (
	Menu State = iota
	LoadLevel
	AimShot
	ShotDetect
	DynamicsSettle
)

func (s State) String() string {
	switch s {
	case Menu:
		return "Menu"
	case LoadLevel:
		return "LoadLevel"
	case AimShot:
		return "AimShot"
	case ShotDetect:
		return "ShotDetect"
	case DynamicsSettle:
		return "DynamicsSettle"
	}
	return "unknown"
}
