// Package browser supervises external browser processes bound to generated
// fingerprints.
//
// The supervisor itself is driver-agnostic: it depends only on the
// ProcessLauncher interface, which models an external browser as something
// that can be started, asked whether it is alive, signalled to shut down
// gracefully, and killed.  ChromeLauncher is the production implementation,
// driving a Chromium-family binary through chromedp; tests substitute a fake
// launcher, and future drivers (camoufox, patched firefox builds) add
// implementations without touching the supervisor.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/firasghr/GoProfileEngine/fingerprint"
	"github.com/firasghr/GoProfileEngine/proxy"
	"github.com/firasghr/GoProfileEngine/storage"
)

// LaunchSpec is the complete external-process configuration for one
// instance: where its isolated storage lives, which fingerprint surfaces to
// present, and which proxy to egress through.
type LaunchSpec struct {
	// Paths is the profile's isolated storage set.  UserDataDir becomes the
	// browser's data directory; no two live instances may share it.
	Paths storage.Paths

	// Fingerprint supplies the user agent, viewport, timezone, locale and
	// the values baked into the spoof script.
	Fingerprint *fingerprint.Fingerprint

	// SpoofScript is the pre-validated override script injected before any
	// page script runs.
	SpoofScript string

	// Proxy is the egress descriptor; nil means direct connection (only
	// sensible in tests – a production profile without a proxy is
	// non-launchable and the engine rejects it earlier).
	Proxy *proxy.Descriptor

	// BrowserPath is the executable to launch; empty lets the driver find a
	// system browser.
	BrowserPath string

	// Headless controls window visibility.
	Headless bool
}

// Process is a running external browser as the supervisor sees it: alive or
// not, gracefully closable, killable, and observable for unsolicited exit.
type Process interface {
	// Alive reports whether the process is still running.
	Alive() bool

	// Close asks the browser to shut down gracefully.  It may block until
	// the browser acknowledges; callers bound it with a context.
	Close(ctx context.Context) error

	// Kill terminates the process immediately.  Idempotent.
	Kill()

	// Exited returns a channel closed when the process ends for any reason,
	// including crashes and external kills.
	Exited() <-chan struct{}
}

// ProcessLauncher starts external browser processes from a LaunchSpec.
type ProcessLauncher interface {
	// Launch starts the process and blocks until it reports ready or ctx
	// expires.  A process that never becomes ready must be fully torn down
	// before Launch returns its error.
	Launch(ctx context.Context, spec LaunchSpec) (Process, error)
}

// ChromeLauncher drives Chromium-family binaries through chromedp.
type ChromeLauncher struct{}

// Launch starts a browser with the spec's isolated user-data-dir, proxy and
// fingerprint surfaces, and applies the CDP-level overrides (timezone,
// geolocation, locale, spoof script) that must be in place before the first
// page loads.  Readiness is asserted by navigating to about:blank; the
// allocator has fully started the process and attached DevTools by the time
// that returns.
func (cl *ChromeLauncher) Launch(ctx context.Context, spec LaunchSpec) (Process, error) {
	if spec.Fingerprint == nil {
		return nil, fmt.Errorf("browser: launch: spec has no fingerprint")
	}

	opts := allocatorOpts(spec)

	// The allocator context deliberately derives from Background, not from
	// ctx: ctx bounds the launch attempt, but the process must outlive it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	p := &chromeProcess{
		taskCtx:     taskCtx,
		taskCancel:  taskCancel,
		allocCancel: allocCancel,
		exited:      make(chan struct{}),
	}

	ready := make(chan error, 1)
	go func() {
		ready <- chromedp.Run(taskCtx,
			applyOverrides(spec),
			chromedp.Navigate("about:blank"),
		)
	}()

	select {
	case err := <-ready:
		if err != nil {
			p.Kill()
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
	case <-ctx.Done():
		p.Kill()
		return nil, fmt.Errorf("browser: launch: process not ready: %w", ctx.Err())
	}

	// Close the exit channel when the browser context dies for any reason;
	// the supervisor's keep-alive watches this for crash detection.
	go func() {
		<-taskCtx.Done()
		p.markExited()
	}()

	return p, nil
}

// allocatorOpts builds the exec-allocator option list: isolation, proxy,
// fingerprint surfaces, and the flags that avoid common headless-detection
// signals.
func allocatorOpts(spec LaunchSpec) []chromedp.ExecAllocatorOption {
	fp := spec.Fingerprint

	var headlessVal string
	if spec.Headless {
		headlessVal = "new" // new headless mode is less detectable than legacy
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserDataDir(spec.Paths.UserDataDir),

		chromedp.Flag("headless", headlessVal),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disk-cache-dir", spec.Paths.CacheDir),
		chromedp.Flag("lang", fp.Locale),

		// Keep WebRTC from leaking the real egress address; the spoofed
		// candidate addresses come from the fingerprint instead.
		chromedp.Flag("webrtc-ip-handling-policy", "disable_non_proxied_udp"),

		chromedp.WindowSize(fp.Viewport.Width, fp.Viewport.Height),
		chromedp.UserAgent(fp.UserAgent),
	}

	if spec.BrowserPath != "" {
		opts = append(opts, chromedp.ExecPath(spec.BrowserPath))
	}
	if spec.Proxy != nil {
		opts = append(opts, chromedp.ProxyServer(spec.Proxy.ServerAddr()))
	}
	return opts
}

// applyOverrides returns the CDP actions that pin the remaining fingerprint
// surfaces: timezone, geolocation, and the document-start spoof script.
func applyOverrides(spec LaunchSpec) chromedp.ActionFunc {
	fp := spec.Fingerprint
	return func(ctx context.Context) error {
		if err := emulation.SetTimezoneOverride(fp.Timezone).Do(ctx); err != nil {
			return fmt.Errorf("set timezone %q: %w", fp.Timezone, err)
		}
		if err := emulation.SetGeolocationOverride().
			WithLatitude(fp.Geolocation.Latitude).
			WithLongitude(fp.Geolocation.Longitude).
			WithAccuracy(fp.Geolocation.Accuracy).
			Do(ctx); err != nil {
			return fmt.Errorf("set geolocation: %w", err)
		}
		if spec.SpoofScript != "" {
			if _, err := page.AddScriptToEvaluateOnNewDocument(spec.SpoofScript).Do(ctx); err != nil {
				return fmt.Errorf("register spoof script: %w", err)
			}
		}
		return nil
	}
}

// chromeProcess adapts a chromedp context pair to the Process interface.
type chromeProcess struct {
	taskCtx     context.Context
	taskCancel  context.CancelFunc
	allocCancel context.CancelFunc

	exitOnce sync.Once
	exited   chan struct{}
}

func (p *chromeProcess) markExited() {
	p.exitOnce.Do(func() { close(p.exited) })
}

// Alive reports whether the browser context is still up.
func (p *chromeProcess) Alive() bool {
	select {
	case <-p.exited:
		return false
	default:
		return p.taskCtx.Err() == nil
	}
}

// Close sends the Browser.close CDP command and waits for the browser to
// shut down, bounded by ctx.  chromedp.Cancel performs exactly this graceful
// sequence, as opposed to cancelling the context, which kills the process.
func (p *chromeProcess) Close(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(p.taskCtx) }()

	select {
	case err := <-done:
		p.markExited()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Kill tears the process down immediately.  Safe to call repeatedly and
// after Close.
func (p *chromeProcess) Kill() {
	p.taskCancel()
	p.allocCancel()
	p.markExited()
}

// Exited returns the channel closed on process end.
func (p *chromeProcess) Exited() <-chan struct{} {
	return p.exited
}
