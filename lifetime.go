package rewind

// Lifetime controls when a component set through SetWithLifetime becomes visible and when it
// expires.
type Lifetime uint8

const (
	// Infinite components stay until removed.
	Infinite Lifetime = iota
	// NotifyAllSystemsBelow components are removed by UseLifetimeStep(NotifyAllSystemsBelow).
	NotifyAllSystemsBelow
	// NotifyAllSystems components are installed on the next tick with NotifyAllSystemsBelow.
	NotifyAllSystems
	// NotifyAllModulesBelow components are removed by UseLifetimeStep(NotifyAllModulesBelow).
	NotifyAllModulesBelow
	// NotifyAllModules components are installed on the next frame with NotifyAllModulesBelow.
	NotifyAllModules
)

func (l Lifetime) String() string {
	switch l {
	case Infinite:
		return "Infinite"
	case NotifyAllSystemsBelow:
		return "NotifyAllSystemsBelow"
	case NotifyAllSystems:
		return "NotifyAllSystems"
	case NotifyAllModulesBelow:
		return "NotifyAllModulesBelow"
	case NotifyAllModules:
		return "NotifyAllModules"
	}
	return "Unknown"
}

// deferred reports whether the lifetime installs through a task queue.
func (l Lifetime) deferred() bool {
	return l == NotifyAllSystems || l == NotifyAllModules
}

// below returns the lifetime a deferred install applies with.
func (l Lifetime) below() Lifetime {
	switch l {
	case NotifyAllSystems:
		return NotifyAllSystemsBelow
	case NotifyAllModules:
		return NotifyAllModulesBelow
	}
	return l
}

// componentState is the per-entity presence record of a registry.
type componentState struct {
	present bool
	expire  Lifetime
}
