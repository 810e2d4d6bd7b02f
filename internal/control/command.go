package control

// Command is an input token delivered by a presenter.
type Command int

const (
	CommandNone Command = iota
	CommandQuit
	CommandRestart
	CommandInterrupt
	CommandConfirm
)

func (c Command) String() string {
	switch c {
	case CommandQuit:
		return "quit"
	case CommandRestart:
		return "restart"
	case CommandInterrupt:
		return "interrupt"
	case CommandConfirm:
		return "confirm"
	default:
		return "none"
	}
}

// State is the phase of the control loop.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateInterrupted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateInterrupted:
		return "interrupted"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}
