package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rbright/interpret/internal/fsm"
	"github.com/rbright/interpret/internal/ipc"
)

// Handle serves IPC commands for the owner process.
func (p *Pipeline) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	arg := strings.TrimSpace(req.Argument)

	switch req.Command {
	case "status":
		status, err := p.Status(ctx)
		if err != nil {
			return ipc.Response{OK: false, Error: err.Error()}
		}
		payload, err := json.Marshal(status)
		if err != nil {
			return ipc.Response{OK: false, State: string(status.Session.Status), Error: fmt.Sprintf("encode status: %v", err)}
		}
		return ipc.Response{OK: true, State: string(status.Session.Status), Message: "status", Payload: payload}
	case "start":
		if err := p.StartCapture(ctx, arg); err != nil {
			return p.failure(ctx, err)
		}
		return p.success(ctx, "capture started")
	case "stop":
		if err := p.StopCapture(ctx); err != nil {
			return p.failure(ctx, err)
		}
		return p.success(ctx, "capture stop requested")
	case "toggle":
		state, err := p.ToggleCapture(ctx)
		if err != nil {
			return ipc.Response{OK: false, State: string(state), Error: err.Error()}
		}
		if state == fsm.StateListening {
			return ipc.Response{OK: true, State: string(state), Message: "capture started"}
		}
		return ipc.Response{OK: true, State: string(state), Message: "capture stop requested"}
	case "source":
		if err := p.SetSourceLanguage(ctx, arg); err != nil {
			return p.failure(ctx, err)
		}
		return p.success(ctx, "source language set to "+arg)
	case "target":
		if err := p.SetTargetLanguage(ctx, arg); err != nil {
			return p.failure(ctx, err)
		}
		return p.success(ctx, "target language set to "+arg)
	case "play":
		if err := p.Play(ctx, Pane(arg)); err != nil {
			return p.failure(ctx, err)
		}
		return p.success(ctx, "playing "+arg)
	default:
		return p.failure(ctx, fmt.Errorf("unknown command: %s", req.Command))
	}
}

func (p *Pipeline) success(ctx context.Context, message string) ipc.Response {
	return ipc.Response{OK: true, State: p.stateFor(ctx), Message: message}
}

func (p *Pipeline) failure(ctx context.Context, err error) ipc.Response {
	return ipc.Response{OK: false, State: p.stateFor(ctx), Error: err.Error()}
}

func (p *Pipeline) stateFor(ctx context.Context) string {
	state, err := call(ctx, p, p.session.Status)
	if err != nil {
		return ""
	}
	return string(state)
}
