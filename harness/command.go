package harness

import (
	"fmt"
	"os"
	"strings"
)

// CommandConfig holds the resolved command, extra arguments, and
// environment variables needed to run a collaborator.
type CommandConfig struct {
	Binary    string
	ExtraArgs []string
	Env       []string
}

// ParseCommand splits a command line such as "python src/trace.py" into the
// binary and its leading arguments. Fields are separated by whitespace; no
// shell quoting is interpreted.
func ParseCommand(line string) (CommandConfig, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return CommandConfig{}, fmt.Errorf("empty command")
	}

	return CommandConfig{
		Binary:    fields[0],
		ExtraArgs: fields[1:],
	}, nil
}

// SelfCommand returns a CommandConfig that re-invokes the running executable
// with the given subcommand. It backs the built-in collaborators.
func SelfCommand(subcommand string) (CommandConfig, error) {
	exe, err := os.Executable()
	if err != nil {
		return CommandConfig{}, fmt.Errorf("resolve executable: %w", err)
	}

	return CommandConfig{
		Binary:    exe,
		ExtraArgs: []string{subcommand},
	}, nil
}

// ResolveCommand returns the command for line, or the built-in subcommand of
// the running executable when line is empty.
func ResolveCommand(line, builtin string) (CommandConfig, error) {
	if strings.TrimSpace(line) == "" {
		return SelfCommand(builtin)
	}

	return ParseCommand(line)
}
