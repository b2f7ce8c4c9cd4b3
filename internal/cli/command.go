// Package cli implements the two line parsers: the menu dialect
// (active in Idle) and the dialogue dialect (active in Waiting and
// Connected). Both produce the same Command tagged-variant type; the
// core never sees raw text.
package cli

import "github.com/teldufalsari/simi/internal/errcode"

// Kind tags which Command variant is populated.
type Kind int

const (
	Exit Kind = iota
	List
	Save
	Add
	Remove
	DialIP
	DialAlias
	Secret
	SpeakPlain
	Debug
)

func (k Kind) String() string {
	switch k {
	case Exit:
		return "Exit"
	case List:
		return "List"
	case Save:
		return "Save"
	case Add:
		return "Add"
	case Remove:
		return "Remove"
	case DialIP:
		return "DialIP"
	case DialAlias:
		return "DialAlias"
	case Secret:
		return "Secret"
	case SpeakPlain:
		return "SpeakPlain"
	case Debug:
		return "Debug"
	default:
		return "Unknown"
	}
}

// Command is the tagged variant delivered to the core by either
// parser dialect. Only the fields relevant to Kind are populated.
type Command struct {
	Kind       Kind
	Alias      string
	Addr       string
	HasPath    bool   // Secret: true if --path was given
	SecretPath string // Secret: the supplied path, valid iff HasPath
	Text       string // SpeakPlain: the message text
}

func exitCmd() Command { return Command{Kind: Exit} }

// emptyLineErr and friends construct a fresh error via errcode.New at
// each call site so AppError's Err field never aliases a shared
// sentinel that errors.Is could accidentally match across unrelated
// failures.
func emptyLineErr() error {
	return errcode.New(errcode.EmptyLine, "empty line")
}

func wrongArgsErr(msg string) error {
	return errcode.New(errcode.WrongArgs, msg)
}

func unknownCommandErr(word string) error {
	return errcode.New(errcode.UnknownCommand, "unknown command: "+word)
}
