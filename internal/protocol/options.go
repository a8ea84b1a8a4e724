package protocol

import "strings"

const optionSeparator = "~"

// AlwaysAllowedAction may be dispatched even when the daemon does not list it
// among a path's context options.
const AlwaysAllowedAction = "copygallery"

// Option is one context action the daemon advertises for a path. On the wire
// it is "name~flag~...~description"; a lone segment is just a description.
type Option struct {
	Name        string   `json:"name,omitempty"`
	Flags       []string `json:"flags,omitempty"`
	Description string   `json:"description"`
}

// Key is the name used for lookup. Options without a name segment are keyed by
// their description.
func (o Option) Key() string {
	if o.Name != "" {
		return o.Name
	}
	return o.Description
}

// Attributes returns every segment before the description, in wire order.
func (o Option) Attributes() []string {
	if o.Name == "" {
		return nil
	}
	attrs := make([]string, 0, len(o.Flags)+1)
	attrs = append(attrs, o.Name)
	return append(attrs, o.Flags...)
}

// Options is the ordered option set of one path.
type Options []Option

// Lookup finds an option by exact, case-sensitive key.
func (o Options) Lookup(name string) (Option, bool) {
	for _, opt := range o {
		if opt.Key() == name {
			return opt, true
		}
	}
	return Option{}, false
}

// Allows reports whether verb may be dispatched against this option set.
func (o Options) Allows(verb string) bool {
	if IsAlwaysAllowed(verb) {
		return true
	}
	_, ok := o.Lookup(verb)
	return ok
}

// Names lists option keys in wire order.
func (o Options) Names() []string {
	names := make([]string, 0, len(o))
	for _, opt := range o {
		names = append(names, opt.Key())
	}
	return names
}

// IsAlwaysAllowed reports whether verb bypasses the option check.
func IsAlwaysAllowed(verb string) bool {
	return verb == AlwaysAllowedAction
}

// DecodeOptions parses a context-options payload line. Field 0 is a marker and
// every following field encodes one option.
func DecodeOptions(line string) (Options, error) {
	if line == "" {
		return nil, violation(VerbContextOptions, "options line is empty")
	}
	fields := strings.Split(line, fieldSeparator)
	opts := make(Options, 0, len(fields)-1)
	for _, field := range fields[1:] {
		if field == "" {
			continue
		}
		opts = append(opts, parseOption(field))
	}
	return opts, nil
}

func parseOption(field string) Option {
	segments := strings.Split(field, optionSeparator)
	last := len(segments) - 1
	opt := Option{Description: segments[last]}
	if last == 0 {
		return opt
	}
	opt.Name = segments[0]
	if last > 1 {
		opt.Flags = append([]string(nil), segments[1:last]...)
	}
	return opt
}
