package cli

import "strings"

// ParseMenu implements the menu dialect, active while the instance is
// Idle: whitespace-separated tokens, first token selects the command.
func ParseMenu(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, emptyLineErr()
	}

	switch fields[0] {
	case "list":
		if len(fields) != 1 {
			return Command{}, wrongArgsErr("list takes no arguments")
		}
		return Command{Kind: List}, nil

	case "add":
		if len(fields) != 3 {
			return Command{}, wrongArgsErr("usage: add <alias> <ip:port>")
		}
		return Command{Kind: Add, Alias: fields[1], Addr: fields[2]}, nil

	case "remove":
		if len(fields) != 2 {
			return Command{}, wrongArgsErr("usage: remove <alias>")
		}
		return Command{Kind: Remove, Alias: fields[1]}, nil

	case "dial":
		if len(fields) != 2 {
			return Command{}, wrongArgsErr("usage: dial <alias|ip:port>")
		}
		if strings.Contains(fields[1], ":") {
			return Command{Kind: DialIP, Addr: fields[1]}, nil
		}
		return Command{Kind: DialAlias, Alias: fields[1]}, nil

	case "save":
		if len(fields) != 1 {
			return Command{}, wrongArgsErr("save takes no arguments")
		}
		return Command{Kind: Save}, nil

	case "exit":
		if len(fields) != 1 {
			return Command{}, wrongArgsErr("exit takes no arguments")
		}
		return exitCmd(), nil

	default:
		return Command{}, unknownCommandErr(fields[0])
	}
}
