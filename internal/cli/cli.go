package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun       Command = "run"
	CommandStart     Command = "start"
	CommandStop      Command = "stop"
	CommandToggle    Command = "toggle"
	CommandStatus    Command = "status"
	CommandSource    Command = "source"
	CommandTarget    Command = "target"
	CommandPlay      Command = "play"
	CommandLanguages Command = "languages"
	CommandDevices   Command = "devices"
	CommandDoctor    Command = "doctor"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

type arity int

const (
	argNone arity = iota
	argOptional
	argRequired
)

var validCommands = map[Command]arity{
	CommandRun:       argNone,
	CommandStart:     argOptional,
	CommandStop:      argNone,
	CommandToggle:    argNone,
	CommandStatus:    argNone,
	CommandSource:    argRequired,
	CommandTarget:    argRequired,
	CommandPlay:      argRequired,
	CommandLanguages: argNone,
	CommandDevices:   argNone,
	CommandDoctor:    argNone,
	CommandVersion:   argNone,
	CommandHelp:      argNone,
}

type Parsed struct {
	Command    Command
	Argument   string
	ConfigPath string
	Source     string
	Target     string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config", "--source", "--target":
			i++
			if i >= len(args) || strings.TrimSpace(args[i]) == "" {
				return Parsed{}, fmt.Errorf("%s requires a value", arg)
			}
			switch arg {
			case "--config":
				parsed.ConfigPath = args[i]
			case "--source":
				parsed.Source = args[i]
			default:
				parsed.Target = args[i]
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			want, ok := validCommands[cmd]
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp

			rest := args[i+1:]
			switch {
			case len(rest) > 1, len(rest) == 1 && want == argNone:
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			case len(rest) == 0 && want == argRequired:
				return Parsed{}, fmt.Errorf("command %q requires an argument", arg)
			case len(rest) == 1:
				if strings.HasPrefix(rest[0], "-") {
					return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
				}
				parsed.Argument = rest[0]
			}
			if err := validateArgument(parsed); err != nil {
				return Parsed{}, err
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

func validateArgument(parsed Parsed) error {
	if parsed.Command != CommandPlay {
		return nil
	}
	switch parsed.Argument {
	case "original", "translation":
		return nil
	default:
		return errors.New(`play requires "original" or "translation"`)
	}
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--source CODE] [--target CODE] <command> [arg]

Commands:
  run                     Run the relay in the foreground and start listening
  start [CODE]            Start capture, optionally in another source language
  stop                    Stop capture and finalize the transcript
  toggle                  Start capture, or stop it when already listening
  status                  Print relay state
  source CODE             Change the source language
  target CODE             Change the target language
  play original|translation
                          Read a pane aloud
  languages               List supported languages
  devices                 List available input devices
  doctor                  Run configuration and environment checks
  version                 Print version information
  help                    Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/interpret/config.jsonc)
  --source CODE   Source language for run
  --target CODE   Target language for run
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
