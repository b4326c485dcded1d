package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"

	"mdac/internal/engine"
)

// Config controls how sessions are launched. ControlURL points at an
// already-running browser (remote devtools); when empty each session
// launches its own Chromium bound to a display slot.
type Config struct {
	Headless   bool
	ControlURL string
	Displays   []string
}

// Session drives one Chromium process/page pair. It implements
// engine.Session; all engine interaction goes through Apply/Observe.
type Session struct {
	id      string
	slot    int
	browser *rod.Browser
	page    *rod.Page
	cancel  context.CancelFunc
	logger  *slog.Logger

	mu          sync.Mutex
	fatal       bool
	closed      bool
	rec         *Recorder
	downloadDir string
}

// NewFactory returns the session factory the pool uses for lazy
// creation. Each session gets its own browser process; headed
// deployments pin DISPLAY to one of the configured virtual displays.
func NewFactory(cfg Config, logger *slog.Logger) engine.Factory {
	return func(ctx context.Context, slot int) (engine.Session, error) {
		sessCtx, cancel := context.WithCancel(context.Background())

		controlURL := cfg.ControlURL
		if controlURL == "" {
			l := launcher.New().
				Headless(cfg.Headless).
				Set("no-sandbox").
				Set("disable-dev-shm-usage").
				Set("window-size", "1280,900")
			if !cfg.Headless && len(cfg.Displays) > 0 {
				display := cfg.Displays[slot%len(cfg.Displays)]
				l = l.Env(append(os.Environ(), "DISPLAY="+display)...)
			}
			u, err := l.Launch()
			if err != nil {
				cancel()
				return nil, fmt.Errorf("launch browser: %w", err)
			}
			controlURL = u
		}

		b := rod.New().ControlURL(controlURL).Context(sessCtx)
		if err := b.Connect(); err != nil {
			cancel()
			return nil, fmt.Errorf("connect browser: %w", err)
		}

		page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			_ = b.Close()
			cancel()
			return nil, fmt.Errorf("open page: %w", err)
		}

		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width: 1280, Height: 900, DeviceScaleFactor: 1,
		}); err != nil {
			logger.Warn("set viewport failed", "error", err)
		}

		s := &Session{
			id:      uuid.New().String(),
			slot:    slot,
			browser: b,
			page:    page,
			cancel:  cancel,
			logger:  logger,
		}
		logger.Info("browser session created", "session", s.id, "slot", slot, "headless", cfg.Headless)
		return s, nil
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Fatal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal
}

// Apply performs one workflow step. The step's deadline rides on ctx;
// rod operations inherit it through the page clone.
func (s *Session) Apply(ctx context.Context, step engine.Step) error {
	page := s.page.Context(ctx)

	var err error
	switch step.Action {
	case engine.ActionNavigate:
		if err = page.Navigate(step.Value); err == nil {
			err = page.WaitLoad()
		}
	case engine.ActionFill:
		err = s.fill(page, step.Selector, step.Value)
	case engine.ActionSelect:
		_, err = page.Eval(selectScript, step.Selector, step.Value)
	case engine.ActionSetDate:
		_, err = page.Eval(setDateScript, step.Selector, step.Value)
	case engine.ActionClick:
		err = s.click(page, step.Selector)
	case engine.ActionPressEnter:
		err = page.Keyboard.Type(input.Enter)
	case engine.ActionWaitVisible:
		err = s.waitVisible(page, step.Selector)
	case engine.ActionWaitFunc:
		err = page.Wait(rod.Eval(step.Script))
	case engine.ActionScreenshot:
		s.mu.Lock()
		rec := s.rec
		s.mu.Unlock()
		if rec != nil {
			rec.Screenshot(step.Name)
		}
	default:
		return fmt.Errorf("unknown step action %q", step.Action)
	}

	if err != nil {
		s.checkFatal()
		return fmt.Errorf("%s %s: %w", step.Action, step.Selector, err)
	}
	return nil
}

func (s *Session) fill(page *rod.Page, selector, value string) error {
	el, err := page.Element(selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err == nil {
		// Replaces any stale value; some fields keep site-side defaults.
		_ = el.Input("")
	}
	return el.Input(value)
}

func (s *Session) click(page *rod.Page, selector string) error {
	el, err := page.Element(selector)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (s *Session) waitVisible(page *rod.Page, selector string) error {
	el, err := page.Element(selector)
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

// checkFatal distinguishes a dead browser from an ordinary step
// failure. A session that cannot answer a version probe is discarded
// by the pool instead of being returned to the idle set.
func (s *Session) checkFatal() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := (proto.BrowserGetVersion{}).Call(s.browser.Context(ctx)); err != nil {
		s.mu.Lock()
		s.fatal = true
		s.mu.Unlock()
		s.logger.Error("browser session is dead", "session", s.id)
	}
}

// Record attaches the diagnostic recorders and routes downloads into
// the job's artifact directory. Must be called before any step runs.
func (s *Session) Record(opts engine.RecordOptions, dir string) (engine.Recorder, error) {
	rec, err := newRecorder(s, opts, dir)
	if err != nil {
		return nil, err
	}

	if dir != "" {
		err := proto.BrowserSetDownloadBehavior{
			Behavior:     proto.BrowserSetDownloadBehaviorBehaviorAllow,
			DownloadPath: dir,
		}.Call(s.browser)
		if err != nil {
			s.logger.Warn("set download behavior failed", "session", s.id, "error", err)
		}
	}

	s.mu.Lock()
	s.rec = rec
	s.downloadDir = dir
	s.mu.Unlock()
	return rec, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	rec := s.rec
	s.mu.Unlock()

	if rec != nil {
		// Recorder finalization is idempotent; this is the backstop for
		// sessions destroyed while leased.
		_, _ = rec.Finalize()
	}

	err := s.browser.Close()
	s.cancel()
	s.logger.Info("browser session closed", "session", s.id, "slot", s.slot)
	return err
}
