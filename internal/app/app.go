package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rbright/interpret/internal/audio"
	"github.com/rbright/interpret/internal/cli"
	"github.com/rbright/interpret/internal/config"
	"github.com/rbright/interpret/internal/doctor"
	"github.com/rbright/interpret/internal/ipc"
	"github.com/rbright/interpret/internal/languages"
	"github.com/rbright/interpret/internal/logging"
	"github.com/rbright/interpret/internal/pipeline"
	"github.com/rbright/interpret/internal/version"
)

const (
	binaryName = "interpret"

	forwardTimeout = 2 * time.Second
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	// Lookup reads environment variables. Nil uses os.LookupEnv.
	Lookup config.LookupFunc
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	switch parsed.Command {
	case cli.CommandHelp:
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	case cli.CommandVersion:
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	case cli.CommandLanguages:
		for _, lang := range languages.All() {
			fmt.Fprintf(r.Stdout, "%-6s %s\n", lang.Code, lang.Name)
		}
		return 0
	}

	lookup := r.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfgLoaded, err := config.LoadWithEnv(parsed.ConfigPath, lookup)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.LogLevel)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		secrets, err := config.LoadSecrets(cfgLoaded.Config.EnvFile, lookup)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		report := doctor.Run(cfgLoaded, secrets)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandRun:
		return r.commandRun(ctx, parsed, cfgLoaded.Config, lookup, logger)
	case cli.CommandToggle:
		return r.commandToggle(ctx, parsed, cfgLoaded.Config, lookup, logger)
	case cli.CommandStart, cli.CommandStop, cli.CommandSource, cli.CommandTarget, cli.CommandPlay:
		return r.forwardOrFail(ctx, ipc.Request{Command: string(parsed.Command), Argument: parsed.Argument})
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: "status"})
	if !handled {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.State == "" {
		resp.State = "idle"
	}
	fmt.Fprintln(r.Stdout, resp.State)
	printStatusPayload(r.Stdout, resp.Payload)
	return 0
}

func printStatusPayload(out io.Writer, payload json.RawMessage) {
	if len(payload) == 0 {
		return
	}
	var status pipeline.Status
	if err := json.Unmarshal(payload, &status); err != nil {
		return
	}
	fmt.Fprintf(out, "languages: %s -> %s\n", status.Source.Code, status.Target.Code)
	if text := strings.TrimSpace(status.Session.Transcript); text != "" {
		fmt.Fprintf(out, "transcript: %s\n", text)
	}
	if text := strings.TrimSpace(status.Translation); text != "" {
		fmt.Fprintf(out, "translation: %s\n", text)
	}
	if status.Translating {
		fmt.Fprintln(out, "translating: yes")
	}
	if status.LastError != "" {
		fmt.Fprintf(out, "last error: %s\n", status.LastError)
	}
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no running interpret process (start one with `interpret run`)\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// commandToggle forwards to a running owner, or becomes the owner and starts
// capture when none is running.
func (r Runner) commandToggle(ctx context.Context, parsed cli.Parsed, cfg config.Config, lookup config.LookupFunc, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: "toggle"})
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
		return 0
	}

	return r.commandRun(ctx, parsed, cfg, lookup, logger)
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if errors.Is(err, ipc.ErrNoOwner) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}
