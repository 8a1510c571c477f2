// Package fingerprint – spoof script rendering.
//
// A fingerprint only matters once it reaches the page: the override script
// rendered here is injected into every document before any page script runs,
// pinning the navigator, screen, WebGL and geolocation surfaces to the
// generated values.  The script is deliberately written in ES5 so it can be
// syntax-checked in-process with the otto interpreter before it is handed to
// a live browser – a spoof script that throws a SyntaxError mid-launch would
// leave the instance exposing its real attributes, which is strictly worse
// than not launching at all.
package fingerprint

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/robertkrimen/otto"
)

// scriptTemplate is the ES5 override script.  Placeholder order (fmt verbs):
// platform, languages JSON, memory GB, cores, screen width, screen height,
// color depth, pixel ratio, webgl vendor, webgl renderer, latitude,
// longitude, accuracy.
const scriptTemplate = `(function() {
  'use strict';

  function def(obj, prop, value) {
    try {
      Object.defineProperty(obj, prop, {
        get: function() { return value; },
        enumerable: true,
        configurable: true
      });
    } catch (e) { /* locked-down property; leave the native value */ }
  }

  def(navigator, 'webdriver', undefined);
  def(navigator, 'platform', %q);
  def(navigator, 'languages', %s);
  def(navigator, 'deviceMemory', %d);
  def(navigator, 'hardwareConcurrency', %d);

  def(screen, 'width', %d);
  def(screen, 'height', %d);
  def(screen, 'colorDepth', %d);
  def(window, 'devicePixelRatio', %g);

  var getParameter = WebGLRenderingContext.prototype.getParameter;
  WebGLRenderingContext.prototype.getParameter = function(p) {
    if (p === 37445) { return %q; }
    if (p === 37446) { return %q; }
    return getParameter.apply(this, arguments);
  };

  var pos = {
    coords: {
      latitude: %g,
      longitude: %g,
      accuracy: %g,
      altitude: null, altitudeAccuracy: null, heading: null, speed: null
    },
    timestamp: Date.now()
  };
  if (navigator.geolocation) {
    navigator.geolocation.getCurrentPosition = function(ok) { ok(pos); };
    navigator.geolocation.watchPosition = function(ok) { ok(pos); return 0; };
  }
})();`

// scriptChecker holds a shared otto VM used only for Compile.  Compilation
// does not execute the script, so a single mutex-guarded VM is enough for
// every generator in the process.
var scriptChecker struct {
	mu sync.Mutex
	vm *otto.Otto
}

// SpoofScript renders the injection script for fp and verifies it parses.
// The returned string is ready to be registered as a document-start script
// with the browser driver.
func SpoofScript(fp *Fingerprint) (string, error) {
	langs, err := json.Marshal(fp.Languages)
	if err != nil {
		return "", fmt.Errorf("fingerprint: encode languages for %s: %w", fp.ID, err)
	}

	script := fmt.Sprintf(scriptTemplate,
		fp.Platform,
		string(langs),
		fp.Hardware.MemoryGB,
		fp.Hardware.Cores,
		fp.Screen.Width,
		fp.Screen.Height,
		fp.Screen.ColorDepth,
		fp.Screen.PixelRatio,
		fp.WebGL.Vendor,
		fp.WebGL.Renderer,
		fp.Geolocation.Latitude,
		fp.Geolocation.Longitude,
		fp.Geolocation.Accuracy,
	)

	scriptChecker.mu.Lock()
	defer scriptChecker.mu.Unlock()
	if scriptChecker.vm == nil {
		scriptChecker.vm = otto.New()
	}
	if _, err := scriptChecker.vm.Compile("spoof.js", script); err != nil {
		return "", fmt.Errorf("fingerprint: spoof script for %s does not parse: %w", fp.ID, err)
	}
	return script, nil
}
