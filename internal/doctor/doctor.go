// Package doctor runs runtime readiness diagnostics for config, audio, and backend credentials.
package doctor

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/interpret/internal/audio"
	"github.com/rbright/interpret/internal/config"
	"github.com/rbright/interpret/internal/languages"
	"github.com/rbright/interpret/internal/recognize"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded, secrets config.Secrets) Report {
	checks := []Check{}

	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: message})

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "runtime directory is set", "XDG_RUNTIME_DIR is empty; the control socket cannot be created"))

	checks = append(checks, checkLanguages(cfg.Config)...)
	checks = append(checks, checkAudioSelection(cfg.Config))
	checks = append(checks, checkRecognizer(cfg.Config, secrets)...)
	checks = append(checks, checkTranslator(cfg.Config, secrets))

	if cfg.Config.Playback.Enable {
		checks = append(checks, checkSecret("playback", secrets.OpenAIAPIKey, "OPENAI_API_KEY"))
	}
	if cfg.Config.Indicator.Enable {
		checks = append(checks, checkBinary("busctl", "desktop notifications"))
	}

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkLanguages(cfg config.Config) []Check {
	resolve := func(name, code string) Check {
		lang, err := languages.Resolve(code)
		if err != nil {
			return Check{Name: name, Pass: false, Message: err.Error()}
		}
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s (%s)", lang.Code, lang.Name)}
	}
	return []Check{
		resolve("language.source", cfg.Recognizer.LanguageCode),
		resolve("language.target", cfg.Translation.TargetLanguage),
	}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func checkRecognizer(cfg config.Config, secrets config.Secrets) []Check {
	switch cfg.Recognizer.Backend {
	case config.RecognizerDeepgram:
		backend := recognize.NewDeepgram(recognize.DeepgramConfig{
			Endpoint: cfg.Recognizer.Deepgram.Endpoint,
			APIKey:   secrets.DeepgramAPIKey,
		})
		return []Check{backendCheck(backend)}
	default:
		credentials := strings.TrimSpace(cfg.Recognizer.Google.CredentialsFile)
		if credentials == "" {
			credentials = secrets.GoogleCredentials
		}
		backend := recognize.NewGoogle(recognize.GoogleConfig{
			Endpoint:        cfg.Recognizer.Google.Endpoint,
			CredentialsFile: credentials,
			Insecure:        cfg.Recognizer.Google.Insecure,
		})
		checks := []Check{backendCheck(backend)}
		if endpoint := strings.TrimSpace(cfg.Recognizer.Google.Endpoint); endpoint != "" {
			checks = append(checks, checkEndpoint(endpoint))
		}
		return checks
	}
}

func backendCheck(backend recognize.Backend) Check {
	name := "recognizer." + backend.Name()
	if err := backend.Check(); err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	return Check{Name: name, Pass: true, Message: "credentials found"}
}

// checkEndpoint dials a host:port recognizer endpoint.
func checkEndpoint(endpoint string) Check {
	conn, err := net.DialTimeout("tcp", endpoint, 2*time.Second)
	if err != nil {
		return Check{Name: "recognizer.endpoint", Pass: false, Message: fmt.Sprintf("dial %s: %v", endpoint, err)}
	}
	_ = conn.Close()
	return Check{Name: "recognizer.endpoint", Pass: true, Message: fmt.Sprintf("reachable at %s", endpoint)}
}

func checkTranslator(cfg config.Config, secrets config.Secrets) Check {
	if cfg.Translation.Backend == config.TranslatorOpenAI {
		return checkSecret("translator.openai", secrets.OpenAIAPIKey, "OPENAI_API_KEY")
	}
	return checkSecret("translator.gemini", secrets.GeminiAPIKey, "GEMINI_API_KEY")
}

func checkSecret(name, value, variable string) Check {
	if strings.TrimSpace(value) == "" {
		return Check{Name: name, Pass: false, Message: variable + " is not set"}
	}
	return Check{Name: name, Pass: true, Message: variable + " is set"}
}
