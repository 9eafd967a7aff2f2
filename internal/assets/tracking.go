package assets

import (
	"net/url"
	"strings"
)

// Deny-list of analytics and social SDK hosts. A reference resolving to one
// of these (exact or subdomain match) is dropped during scanning: it produces
// no ReferenceSite and never appears in the output document.
var trackingHosts = []string{
	"google-analytics.com",
	"googletagmanager.com",
	"googlesyndication.com",
	"googleadservices.com",
	"doubleclick.net",
	"connect.facebook.net",
	"analytics.tiktok.com",
	"snap.licdn.com",
	"static.hotjar.com",
	"script.hotjar.com",
	"cdn.mxpnl.com",
	"cdn.segment.com",
	"cdn.amplitude.com",
	"clarity.ms",
	"plausible.io",
	"cdn.heapanalytics.com",
	"fullstory.com",
	"newrelic.com",
	"js-agent.newrelic.com",
	"stats.wp.com",
	"matomo.cloud",
}

// Well-known tracking call signatures found in inline script bodies.
var trackingSignatures = []string{
	"gtag(",
	"ga('create'",
	"ga(\"create\"",
	"_gaq.push",
	"dataLayer.push",
	"googletagmanager.com",
	"fbq(",
	"twq(",
	"mixpanel.",
	"heap.load",
	"hj(",
	"_paq.push",
	"clarity(",
	"GoogleAnalyticsObject",
	"amplitude.getInstance",
}

// IsTrackingHost reports whether a URL or bare hostname belongs to the
// tracking deny-list. Matching is exact or by domain suffix, so
// "www.google-analytics.com" is caught by "google-analytics.com".
func IsTrackingHost(urlOrHost string) bool {
	host := urlOrHost
	if strings.Contains(urlOrHost, "/") || strings.Contains(urlOrHost, ":") {
		if u, err := url.Parse(urlOrHost); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	}
	host = strings.ToLower(host)
	for _, t := range trackingHosts {
		if host == t || strings.HasSuffix(host, "."+t) {
			return true
		}
	}
	return false
}

// IsTrackingContent reports whether inline script text contains a known
// tracking call signature.
func IsTrackingContent(text string) bool {
	for _, sig := range trackingSignatures {
		if strings.Contains(text, sig) {
			return true
		}
	}
	return false
}
