package collector

import "perfmetrics-agent/models"

// DisplayMetrics gathers screen, viewport and navigation timing.
// Missing sources leave their fields nil.
func DisplayMetrics(env Environment) models.DisplayMetrics {
	metrics := models.DisplayMetrics{}

	if screen, ok := env.Screen(); ok {
		metrics.ScreenWidth = models.Int(screen.Width)
		metrics.ScreenHeight = models.Int(screen.Height)
		metrics.ColorDepth = models.Int(screen.ColorDepth)
		metrics.PixelDepth = models.Int(screen.PixelDepth)
	}

	if viewport, ok := env.Viewport(); ok && viewport.Width > 0 && viewport.Height > 0 {
		metrics.ViewportWidth = models.Int(viewport.Width)
		metrics.ViewportHeight = models.Int(viewport.Height)
	}

	if nav, ok := env.NavigationTiming(); ok {
		metrics.DOMContentLoaded = models.Float(nav.DOMContentLoadedEnd - nav.DOMContentLoadedStart)
		metrics.LoadComplete = models.Float(nav.LoadEnd - nav.LoadStart)
	}

	return metrics
}
