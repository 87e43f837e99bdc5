package main

import (
	"fmt"

	"github.com/lorehq/lore/internal/loreerr"
)

// CompletionsCmd prints a shell completion script. kong does not ship a
// completion generator, so the scripts below are hand-written against the
// top-level command set; they complete subcommands but not flag values.
type CompletionsCmd struct {
	Shell string `arg:"" enum:"bash,zsh,fish" help:"Shell to generate a completion script for."`
}

var topLevelCommands = []string{
	"init", "import", "sessions", "show", "current", "context", "search",
	"export", "delete", "summarize", "tag", "link", "unlink", "blame",
	"hooks", "db", "cloud", "daemon", "doctor", "config", "completions",
	"insights", "version",
}

func (c *CompletionsCmd) Run(ctx *Context) error {
	switch c.Shell {
	case "bash":
		fmt.Print(bashCompletion())
	case "zsh":
		fmt.Print(zshCompletion())
	case "fish":
		fmt.Print(fishCompletion())
	default:
		return loreerr.New(loreerr.KindInput, "completions", fmt.Errorf("unsupported shell %q", c.Shell))
	}
	return nil
}

func bashCompletion() string {
	return `_lore_completions() {
  local cur=${COMP_WORDS[COMP_CWORD]}
  if [ "$COMP_CWORD" -eq 1 ]; then
    COMPREPLY=($(compgen -W "` + joinSpace(topLevelCommands) + `" -- "$cur"))
  fi
}
complete -F _lore_completions lore
`
}

func zshCompletion() string {
	return `#compdef lore
_lore() {
  if (( CURRENT == 2 )); then
    compadd ` + joinSpace(topLevelCommands) + `
  fi
}
_lore
`
}

func fishCompletion() string {
	var b []byte
	for _, c := range topLevelCommands {
		b = append(b, []byte("complete -c lore -n \"__fish_use_subcommand\" -a "+c+"\n")...)
	}
	return string(b)
}

func joinSpace(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}
