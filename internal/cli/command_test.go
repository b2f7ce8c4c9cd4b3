package cli

import (
	"errors"
	"testing"

	"github.com/teldufalsari/simi/internal/errcode"
)

func codeOf(t *testing.T, err error) errcode.Code {
	t.Helper()
	var ae *errcode.AppError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *errcode.AppError, got %T (%v)", err, err)
	}
	return ae.Code
}

func TestParseMenu(t *testing.T) {
	cases := []struct {
		line string
		want Command
	}{
		{"list", Command{Kind: List}},
		{"add alice 127.0.0.1:4000", Command{Kind: Add, Alias: "alice", Addr: "127.0.0.1:4000"}},
		{"remove alice", Command{Kind: Remove, Alias: "alice"}},
		{"dial 127.0.0.1:4000", Command{Kind: DialIP, Addr: "127.0.0.1:4000"}},
		{"dial alice", Command{Kind: DialAlias, Alias: "alice"}},
		{"save", Command{Kind: Save}},
		{"exit", Command{Kind: Exit}},
	}
	for _, c := range cases {
		got, err := ParseMenu(c.line)
		if err != nil {
			t.Fatalf("ParseMenu(%q): %v", c.line, err)
		}
		if got != c.want {
			t.Errorf("ParseMenu(%q) = %+v, want %+v", c.line, got, c.want)
		}
	}
}

func TestParseMenuErrors(t *testing.T) {
	cases := []struct {
		line     string
		wantCode errcode.Code
	}{
		{"", errcode.EmptyLine},
		{"   ", errcode.EmptyLine},
		{"add alice", errcode.WrongArgs},
		{"bogus", errcode.UnknownCommand},
	}
	for _, c := range cases {
		_, err := ParseMenu(c.line)
		if got := codeOf(t, err); got != c.wantCode {
			t.Errorf("ParseMenu(%q): code = %v, want %v", c.line, got, c.wantCode)
		}
	}
}

func TestParseDialoguePlainText(t *testing.T) {
	got, err := ParseDialogue("hello there")
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != SpeakPlain || got.Text != "hello there" {
		t.Fatalf("got %+v", got)
	}
}

func TestParseDialogueCommands(t *testing.T) {
	cases := []struct {
		line string
		want Command
	}{
		{"--exit", Command{Kind: Exit}},
		{"--debug", Command{Kind: Debug}},
		{"--secret", Command{Kind: Secret}},
		{"--secret --path=/tmp/a.png", Command{Kind: Secret, HasPath: true, SecretPath: "/tmp/a.png"}},
	}
	for _, c := range cases {
		got, err := ParseDialogue(c.line)
		if err != nil {
			t.Fatalf("ParseDialogue(%q): %v", c.line, err)
		}
		if got != c.want {
			t.Errorf("ParseDialogue(%q) = %+v, want %+v", c.line, got, c.want)
		}
	}
}

func TestParseDialogueUnknownDashCommand(t *testing.T) {
	_, err := ParseDialogue("--bogus")
	if got := codeOf(t, err); got != errcode.UnknownCommand {
		t.Fatalf("code = %v, want UnknownCommand", got)
	}
}
