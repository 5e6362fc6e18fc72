// Package message holds the diagnostics the engine reports about analysed code.
//
// Messages are the second tier of trouble: the user's code contradicts a
// contract or contains something suspicious. They never stop the analysis.
// Internal-consistency violations are fault errors instead.
package message

import (
	"cmp"
	"fmt"
	"go/token"
	"slices"
)

// Severity ranks messages.
type Severity uint8

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "info"
	}
}

// Kind identifies what a message is about. The string form is the message prefix.
type Kind string

const (
	Unreachable              Kind = "unreachable statement"
	AssignmentToParameter    Kind = "assignment to parameter"
	ContractViolation        Kind = "contract violation"
	IncompatibleImmutability Kind = "incompatible immutability contract"
	DuplicateMark            Kind = "duplicate mark condition"
	InconsistentPrecondition Kind = "inconsistent precondition"
	UnusedIgnore             Kind = "unused ignore directive"
	InvalidDirective         Kind = "invalid directive"
	InferredAnnotations      Kind = "inferred"
	InternalError            Kind = "Internal Error"
)

var severities = map[Kind]Severity{
	Unreachable:              Warning,
	AssignmentToParameter:    Warning,
	ContractViolation:        Error,
	IncompatibleImmutability: Error,
	DuplicateMark:            Error,
	InconsistentPrecondition: Error,
	UnusedIgnore:             Warning,
	InvalidDirective:         Error,
	InferredAnnotations:      Info,
	InternalError:            Error,
}

// Severity returns the fixed severity of a kind.
func (k Kind) Severity() Severity { return severities[k] }

// Message is one diagnostic.
type Message struct {
	Kind Kind
	Pos  token.Pos
	// Subject is the fully qualified name of the entity the message is about.
	Subject string
	Text    string
}

// New creates a message.
func New(kind Kind, pos token.Pos, subject, format string, args ...any) Message {
	return Message{Kind: kind, Pos: pos, Subject: subject, Text: fmt.Sprintf(format, args...)}
}

// Severity returns the severity of the message's kind.
func (m Message) Severity() Severity { return m.Kind.Severity() }

func (m Message) String() string {
	if m.Text == "" {
		return string(m.Kind)
	}
	return string(m.Kind) + ": " + m.Text
}

func compare(a, b Message) int {
	return cmp.Or(
		cmp.Compare(a.Pos, b.Pos),
		cmp.Compare(a.Kind, b.Kind),
		cmp.Compare(a.Subject, b.Subject),
		cmp.Compare(a.Text, b.Text),
	)
}

// Bag collects messages. Adding the same message twice keeps one copy,
// so analysers may report on every iteration.
type Bag struct {
	seen     map[Message]struct{}
	messages []Message
}

// NewBag returns an empty bag.
func NewBag() *Bag {
	return &Bag{seen: make(map[Message]struct{})}
}

// Add records m unless an identical message is already present.
func (b *Bag) Add(m Message) {
	if _, ok := b.seen[m]; ok {
		return
	}
	b.seen[m] = struct{}{}
	b.messages = append(b.messages, m)
}

// AddAll records every message of ms.
func (b *Bag) AddAll(ms ...Message) {
	for _, m := range ms {
		b.Add(m)
	}
}

// Messages returns the messages sorted by position, kind, subject and text.
func (b *Bag) Messages() []Message {
	out := slices.Clone(b.messages)
	slices.SortFunc(out, compare)
	return out
}

// HasErrors reports whether any message has [Error] severity.
func (b *Bag) HasErrors() bool {
	return slices.ContainsFunc(b.messages, func(m Message) bool { return m.Severity() == Error })
}

// Len returns the number of distinct messages.
func (b *Bag) Len() int { return len(b.messages) }
