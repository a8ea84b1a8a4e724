package protocol

import (
	"bytes"
	"strings"
)

// Status tokens that open every reply.
const (
	StatusOK    = "ok"
	StatusNotOK = "notok"
)

// Reply is one decoded command-socket response.
type Reply struct {
	// Status is the first tab-separated field of the first line.
	Status string
	// Detail is whatever followed the status token on the first line.
	Detail string
	// Lines holds the payload lines between the status line and the terminator.
	Lines []string
}

// OK reports whether the daemon accepted the request.
func (r Reply) OK() bool {
	return r.Status == StatusOK
}

// Err returns a *DaemonError for non-ok replies and nil otherwise. The payload
// of a refused request is only ever read as an error message.
func (r Reply) Err(verb string) error {
	if r.OK() {
		return nil
	}
	return &DaemonError{Verb: verb, Message: r.Message()}
}

// Message is the explanation carried by a refused reply.
func (r Reply) Message() string {
	if msg := strings.TrimSpace(r.Detail); msg != "" {
		return msg
	}
	if len(r.Lines) > 0 {
		first := r.Lines[0]
		if _, rest, ok := strings.Cut(first, fieldSeparator); ok && strings.TrimSpace(rest) != "" {
			return strings.TrimSpace(rest)
		}
		if strings.TrimSpace(first) != "" {
			return strings.TrimSpace(first)
		}
	}
	if r.Status == "" {
		return "empty status"
	}
	return r.Status
}

// Line returns payload line i or a protocol violation naming verb.
func (r Reply) Line(verb string, i int) (string, error) {
	if i < 0 || i >= len(r.Lines) {
		return "", violation(verb, "reply has %d payload lines, need line %d", len(r.Lines), i+1)
	}
	return r.Lines[i], nil
}

// Complete reports whether buf holds a whole reply.
func Complete(buf []byte) bool {
	if !bytes.HasSuffix(buf, TerminatorLine) {
		return false
	}
	rest := len(buf) - len(TerminatorLine)
	return rest == 0 || buf[rest-1] == '\n'
}

// Decode splits a raw reply into its status token and payload lines. The
// trailing empty segment and the terminator line are dropped.
func Decode(raw []byte) (Reply, error) {
	text := string(raw)
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if n := len(lines); n > 0 && lines[n-1] == Terminator {
		lines = lines[:n-1]
	}
	if len(lines) == 0 || lines[0] == "" {
		return Reply{}, violation("", "reply has no status line")
	}
	status, detail, _ := strings.Cut(lines[0], fieldSeparator)
	reply := Reply{Status: status, Detail: detail}
	if len(lines) > 1 {
		reply.Lines = append([]string(nil), lines[1:]...)
	}
	return reply, nil
}

// EncodeReply builds the wire form of a reply. It is the inverse of Decode and
// is what a daemon (or a test double) writes back on the command socket.
func EncodeReply(r Reply) []byte {
	var buf bytes.Buffer
	buf.WriteString(r.Status)
	if r.Detail != "" {
		buf.WriteString(fieldSeparator)
		buf.WriteString(r.Detail)
	}
	buf.WriteByte('\n')
	for _, line := range r.Lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	buf.Write(TerminatorLine)
	return buf.Bytes()
}

// DecodeStatus reads a file-status payload line. Field 1 is either the
// literal "unwatched" or the daemon's sync state label.
func DecodeStatus(line string) (state string, unwatched bool, err error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) < 2 {
		return "", false, violation(VerbFileStatus, "status line %q has no state field", line)
	}
	if fields[1] == "unwatched" {
		return "", true, nil
	}
	return fields[1], false, nil
}

// DecodeFolderTag reads a folder-tag payload line; the tag is field 1.
func DecodeFolderTag(line string) (string, error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) < 2 {
		return "", violation(VerbFolderTag, "tag line %q has no tag field", line)
	}
	return fields[1], nil
}
