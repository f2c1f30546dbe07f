package sync

// State names a node of the sync controller's state machine (spec.md §4.5).
type State uint8

const (
	StateInit State = iota
	StateReadNodeStatus
	StateBootstrapOrResume
	StateTail
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateReadNodeStatus:
		return "read_node_status"
	case StateBootstrapOrResume:
		return "bootstrap_or_resume"
	case StateTail:
		return "tail"
	case StateFatal:
		return "fatal"
	default:
		return "unknown"
	}
}
