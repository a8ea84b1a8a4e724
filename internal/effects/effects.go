package effects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cli/browser"
	"golang.design/x/clipboard"

	"syncdctl/internal/logging"
	"syncdctl/internal/protocol"
)

// ErrUnsupportedEffect is returned for confirmations Applier cannot perform.
var ErrUnsupportedEffect = errors.New("unsupported effect")

// Result describes an applied effect.
type Result struct {
	Effect protocol.Effect `json:"effect"`
	Target string          `json:"target"`
}

// Applier performs confirmation effects. The zero value uses the system
// clipboard, the default browser, and the local filesystem.
type Applier struct {
	// Clipboard replaces the system clipboard write.
	Clipboard func(text string) error
	// OpenURL replaces the default browser launch.
	OpenURL func(url string) error
	// Touch replaces the timestamp refresh.
	Touch func(path string, at time.Time) error
	// Now supplies the timestamp for shell touches.
	Now    func() time.Time
	Logger *slog.Logger
}

// Apply performs the effect named by conf.
func (a *Applier) Apply(ctx context.Context, conf protocol.Confirmation) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	logger := logging.NewComponentLogger(a.Logger, "effects")
	target := strings.TrimSpace(conf.Value())
	if target == "" {
		return Result{}, fmt.Errorf("%s: empty payload", conf.Effect)
	}
	result := Result{Effect: conf.Effect, Target: target}

	var err error
	switch conf.Effect {
	case protocol.EffectClipboardCopy:
		err = a.clipboard()(target)
	case protocol.EffectLaunchURL:
		err = a.openURL()(target)
	case protocol.EffectShellTouch:
		err = a.touch()(target, a.now())
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedEffect, conf.Effect)
	}
	if err != nil {
		logger.Warn("effect failed",
			logging.String("effect", conf.Effect.String()),
			logging.Error(err),
			logging.Hint(hint(conf.Effect)),
		)
		return Result{}, fmt.Errorf("%s: %w", conf.Effect, err)
	}
	logger.Info("effect applied",
		logging.String("effect", conf.Effect.String()),
		logging.String("target", target),
	)
	return result, nil
}

func (a *Applier) clipboard() func(string) error {
	if a.Clipboard != nil {
		return a.Clipboard
	}
	return systemClipboard
}

func (a *Applier) openURL() func(string) error {
	if a.OpenURL != nil {
		return a.OpenURL
	}
	return openInBrowser
}

func (a *Applier) touch() func(string, time.Time) error {
	if a.Touch != nil {
		return a.Touch
	}
	return touchFile
}

func (a *Applier) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func systemClipboard(text string) error {
	if err := clipboard.Init(); err != nil {
		return fmt.Errorf("initialize clipboard: %w", err)
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func openInBrowser(url string) error {
	// The launcher's own output would interleave with command output.
	browser.Stdout = os.Stderr
	return browser.OpenURL(url)
}

func touchFile(path string, at time.Time) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return os.Chtimes(path, at, at)
}

func hint(effect protocol.Effect) string {
	switch effect {
	case protocol.EffectClipboardCopy:
		return "clipboard requires a running X11 or Wayland session"
	case protocol.EffectLaunchURL:
		return "set BROWSER or install xdg-open"
	default:
		return "check the path exists and is writable"
	}
}
