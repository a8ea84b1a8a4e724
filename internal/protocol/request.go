package protocol

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	// Terminator ends every request and reply.
	Terminator = "done"
	// ReadChunkSize matches the daemon's own framing reads.
	ReadChunkSize = 512

	fieldSeparator = "\t"
)

// Request verbs understood by the daemon.
const (
	VerbFileStatus     = "icon_overlay_file_status"
	VerbContextOptions = "icon_overlay_context_options"
	VerbContextAction  = "icon_overlay_context_action"
	VerbFolderTag      = "get_folder_tag"
)

// TerminatorLine is the byte sequence every complete reply ends with.
var TerminatorLine = []byte(Terminator + "\n")

// Arg is one key/value request argument. Order is preserved on the wire.
type Arg struct {
	Key   string
	Value string
}

// Request is a verb plus its ordered arguments.
type Request struct {
	Verb string
	Args []Arg
}

// NewRequest builds a request from alternating key/value strings.
func NewRequest(verb string, kv ...string) Request {
	req := Request{Verb: verb}
	for i := 0; i+1 < len(kv); i += 2 {
		req.Args = append(req.Args, Arg{Key: kv[i], Value: kv[i+1]})
	}
	return req
}

// Encode serializes the request. Fields that contain a tab, a line break, or
// the bare terminator are rejected with ErrInvalidField.
func (r Request) Encode() ([]byte, error) {
	if r.Verb == "" {
		return nil, fmt.Errorf("%w: empty verb", ErrInvalidField)
	}
	if err := checkField("verb", r.Verb); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(r.Verb)
	buf.WriteByte('\n')
	for _, arg := range r.Args {
		if err := checkField("key", arg.Key); err != nil {
			return nil, err
		}
		if err := checkField(arg.Key, arg.Value); err != nil {
			return nil, err
		}
		buf.WriteString(arg.Key)
		buf.WriteString(fieldSeparator)
		buf.WriteString(arg.Value)
		buf.WriteByte('\n')
	}
	buf.Write(TerminatorLine)
	return buf.Bytes(), nil
}

// EncodeRequest is shorthand for NewRequest(verb, kv...).Encode().
func EncodeRequest(verb string, kv ...string) ([]byte, error) {
	return NewRequest(verb, kv...).Encode()
}

func checkField(name, value string) error {
	switch {
	case strings.ContainsAny(value, "\t\r\n"):
		return fmt.Errorf("%w: %s contains a tab or line break", ErrInvalidField, name)
	case value == Terminator:
		return fmt.Errorf("%w: %s is the terminator", ErrInvalidField, name)
	}
	return nil
}

// Get returns the value of the first argument named key.
func (r Request) Get(key string) (string, bool) {
	for _, arg := range r.Args {
		if arg.Key == key {
			return arg.Value, true
		}
	}
	return "", false
}

// DecodeRequest parses one framed request, the inverse of Encode. raw must
// hold the full request including the terminator line.
func DecodeRequest(raw []byte) (Request, error) {
	if !Complete(raw) {
		return Request{}, violation("request", "missing terminator")
	}
	lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	lines = lines[:len(lines)-1]
	if len(lines) == 0 || lines[0] == "" {
		return Request{}, violation("request", "missing verb")
	}
	req := Request{Verb: lines[0]}
	for _, line := range lines[1:] {
		key, value, ok := strings.Cut(line, fieldSeparator)
		if !ok {
			return Request{}, violation(req.Verb, "argument %q has no value", line)
		}
		req.Args = append(req.Args, Arg{Key: key, Value: value})
	}
	return req, nil
}
