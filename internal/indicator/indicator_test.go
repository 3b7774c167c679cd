package indicator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rbright/interpret/internal/fault"
	"github.com/rbright/interpret/internal/fsm"
	"github.com/stretchr/testify/require"
)

func TestNotifierDrivesDesktopNotifications(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	t.Setenv("LC_ALL", "C")
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [[ "$*" == *" Notify "* ]]; then
  echo 'u 42'
fi
`)

	n := New(Config{Enable: true, ErrorTimeoutMS: 1500}, nil)
	t.Cleanup(n.Close)

	n.OnStatus(fsm.StateListening)
	n.OnError(fault.TranslationFailed, "connection reset")
	n.OnStatus(fsm.StateIdle)

	lines := waitForLines(t, argsFile, 3)
	require.Contains(t, lines[0], "Notify susssasa{sv}i interpret 0  Listening… ")
	require.True(t, strings.HasSuffix(lines[0], " 0 1 urgency y 1 300000"), lines[0])
	require.Contains(t, lines[1], "Notify susssasa{sv}i interpret 42  Translation error occurred. Please try again. connection reset 0 1 urgency y 2 1500")
	require.Contains(t, lines[2], "CloseNotification u 42")
}

func TestNotifierDisabledSkipsBus(t *testing.T) {
	var calls int
	n := New(Config{Enable: false}, nil)
	n.notify = func(context.Context, notification) (uint32, error) {
		calls++
		return 1, nil
	}

	n.OnStatus(fsm.StateListening)
	n.OnError(fault.RecognitionFailed, "boom")
	n.OnStatus(fsm.StateIdle)
	n.Close()

	require.Zero(t, calls)
}

func TestNotifierCuesFollowStatus(t *testing.T) {
	n := New(Config{SoundEnable: true}, nil)
	var (
		mu    sync.Mutex
		kinds []cueKind
	)
	n.cue = func(_ context.Context, kind cueKind) error {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, kind)
		return nil
	}

	n.OnStatus(fsm.StateListening)
	n.OnStatus(fsm.StateStopping)
	n.OnError(fault.RecognitionFailed, "mic gone")
	n.OnStatus(fsm.StateIdle)
	n.Close()

	mu.Lock()
	defer mu.Unlock()
	require.ElementsMatch(t, []cueKind{cueStart, cueError, cueStop}, kinds)
}

func TestNotifierDismissWithoutNotificationIsNoop(t *testing.T) {
	n := New(Config{Enable: true}, nil)
	dismissed := make(chan uint32, 1)
	n.dismiss = func(_ context.Context, id uint32) error {
		dismissed <- id
		return nil
	}

	n.OnStatus(fsm.StateIdle)
	time.Sleep(20 * time.Millisecond)
	n.Close()

	require.Empty(t, dismissed)
}

func TestNotifierDefaults(t *testing.T) {
	n := New(Config{}, nil)
	t.Cleanup(n.Close)
	require.Equal(t, "interpret", n.cfg.DesktopAppName)
	require.Equal(t, 4000, n.cfg.ErrorTimeoutMS)
}

func TestNotifierStoppingUsesLowUrgencyAndReplacesID(t *testing.T) {
	n := New(Config{Enable: true}, nil)
	sent := make(chan notification, 4)
	n.notify = func(_ context.Context, note notification) (uint32, error) {
		sent <- note
		return 9, nil
	}

	n.OnStatus(fsm.StateListening)
	n.OnStatus(fsm.StateStopping)

	first := <-sent
	second := <-sent
	n.Close()

	require.Equal(t, urgencyNormal, first.Urgency)
	require.Zero(t, first.ReplaceID)
	require.Equal(t, urgencyLow, second.Urgency)
	require.Equal(t, uint32(9), second.ReplaceID)
}

func TestParseNotifyReply(t *testing.T) {
	id, err := parseNotifyReply("u 17\n")
	require.NoError(t, err)
	require.Equal(t, uint32(17), id)

	_, err = parseNotifyReply("s hello")
	require.ErrorContains(t, err, "unexpected reply")

	_, err = parseNotifyReply("u nope")
	require.ErrorContains(t, err, "parse id")
}

func TestDesktopNotifyReportsBusctlOutputOnFailure(t *testing.T) {
	installBusctlStub(t, `
echo 'Call failed: no notification daemon' >&2
exit 1
`)

	_, err := desktopNotify(context.Background(), notification{AppName: "interpret", Summary: "x"})
	require.ErrorContains(t, err, "no notification daemon")
}

func waitForLines(t *testing.T, path string, want int) []string {
	t.Helper()
	var lines []string
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		if err != nil {
			return false
		}
		lines = strings.Split(strings.TrimSpace(string(data)), "\n")
		return len(lines) >= want
	}, 3*time.Second, 10*time.Millisecond)
	return lines
}

func installBusctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "busctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
