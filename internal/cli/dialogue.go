package cli

import "strings"

// ParseDialogue implements the dialogue dialect, active in Waiting and
// Connected: a line starting with "--" is a command, any other line is
// plaintext to send.
func ParseDialogue(line string) (Command, error) {
	if !strings.HasPrefix(line, "--") {
		return Command{Kind: SpeakPlain, Text: line}, nil
	}

	fields := strings.Fields(line[2:])
	if len(fields) == 0 {
		return Command{}, emptyLineErr()
	}
	word, args := fields[0], fields[1:]

	switch word {
	case "exit":
		if len(args) != 0 {
			return Command{}, wrongArgsErr("usage: --exit")
		}
		return exitCmd(), nil

	case "debug":
		if len(args) != 0 {
			return Command{}, wrongArgsErr("usage: --debug")
		}
		return Command{Kind: Debug}, nil

	case "secret":
		return parseSecretArgs(args)

	default:
		return Command{}, unknownCommandErr(word)
	}
}

// parseSecretArgs implements the "--secret [--path=/file]" grammar: at
// most one further argument, which must be --path=<value>.
func parseSecretArgs(args []string) (Command, error) {
	if len(args) > 1 {
		return Command{}, wrongArgsErr("usage: --secret [--path=/path/to/file]")
	}
	if len(args) == 0 {
		return Command{Kind: Secret}, nil
	}
	key, value, found := strings.Cut(args[0], "=")
	if key != "--path" || !found || value == "" {
		return Command{}, wrongArgsErr("usage: --secret [--path=/path/to/file]")
	}
	return Command{Kind: Secret, HasPath: true, SecretPath: value}, nil
}
