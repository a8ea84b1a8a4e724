package ipc

import "syncdctl/internal/protocol"

// StatusKind tags the variant held by a StatusResult.
type StatusKind int

const (
	StatusUnwatched StatusKind = iota
	StatusError
	StatusFile
	StatusFolder
)

func (k StatusKind) String() string {
	switch k {
	case StatusUnwatched:
		return "unwatched"
	case StatusError:
		return "error"
	case StatusFile:
		return "file"
	case StatusFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON output.
func (k StatusKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// StatusResult is the decoded answer to a status query. Which fields are set
// depends on Kind:
//   - StatusUnwatched: none
//   - StatusError: Step and Message
//   - StatusFile: State and Options
//   - StatusFolder: State, Options and FolderTag
type StatusResult struct {
	Kind      StatusKind       `json:"kind"`
	State     string           `json:"state,omitempty"`
	Options   protocol.Options `json:"options,omitempty"`
	FolderTag string           `json:"folder_tag,omitempty"`
	Step      string           `json:"step,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// Watched reports whether the daemon synchronizes the path.
func (r StatusResult) Watched() bool {
	return r.Kind == StatusFile || r.Kind == StatusFolder
}

// Err returns the daemon's refusal for StatusError results and nil otherwise.
func (r StatusResult) Err() error {
	if r.Kind != StatusError {
		return nil
	}
	return &DaemonError{Verb: r.Step, Message: r.Message}
}

// OutcomeKind tags the variant held by an ActionOutcome.
type OutcomeKind int

const (
	// OutcomeConfirmed means the daemon asked for a client-side effect.
	OutcomeConfirmed OutcomeKind = iota
	// OutcomePartialSuccess means the request was accepted but no effect
	// command arrived within the bound.
	OutcomePartialSuccess
	// OutcomeError means the daemon refused the action.
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomePartialSuccess:
		return "partial_success"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON output.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ActionOutcome is the result of PerformAction.
type ActionOutcome struct {
	Kind         OutcomeKind           `json:"kind"`
	Confirmation protocol.Confirmation `json:"confirmation"`
	Message      string                `json:"message,omitempty"`
}

// Err returns the daemon's refusal for OutcomeError and nil otherwise.
func (o ActionOutcome) Err() error {
	if o.Kind != OutcomeError {
		return nil
	}
	return &DaemonError{Verb: protocol.VerbContextAction, Message: o.Message}
}

func refused(verb string, reply protocol.Reply) StatusResult {
	return StatusResult{Kind: StatusError, Step: verb, Message: reply.Message()}
}
