package tracking

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"campaign-engine/internal/models"
)

var hrefPattern = regexp.MustCompile(`href\s*=\s*["']([^"']+)["']`)

// Instrumentor rewrites rendered HTML bodies with an open pixel and
// per-link click redirects. The transform is pure and deterministic.
type Instrumentor struct {
	baseURL string
}

func NewInstrumentor(baseURL string) *Instrumentor {
	return &Instrumentor{baseURL: strings.TrimRight(baseURL, "/")}
}

// Instrument returns the instrumented HTML and the ordered link registry.
// Anchor hrefs are scanned in document order; in-page fragments and mailto
// targets are skipped. Each qualifying href gets a zero-based index in
// first-occurrence order, and every literal occurrence of that exact href
// string is replaced with the redirect URL. Two anchors sharing an
// identical literal URL therefore collapse onto the same tracking index.
func (i *Instrumentor) Instrument(html, trackingID string) (string, []models.TrackedLink) {
	var links []models.TrackedLink
	seen := make(map[string]bool)

	for _, match := range hrefPattern.FindAllStringSubmatch(html, -1) {
		href := match[1]
		if !trackable(href) || seen[href] {
			continue
		}
		seen[href] = true

		redirect := fmt.Sprintf("%s/t/c/%s/%d", i.baseURL, trackingID, len(links))
		links = append(links, models.TrackedLink{
			Original: href,
			Tracking: redirect,
		})
	}

	// Rewrite longest hrefs first so an href that is a strict prefix of
	// another cannot corrupt the longer one mid-replacement. Registry
	// indices keep first-occurrence order.
	ordered := append([]models.TrackedLink(nil), links...)
	sort.SliceStable(ordered, func(a, b int) bool {
		return len(ordered[a].Original) > len(ordered[b].Original)
	})
	for _, link := range ordered {
		html = strings.ReplaceAll(html, link.Original, link.Tracking)
	}

	return i.appendPixel(html, trackingID), links
}

// appendPixel injects the invisible open-tracking image, before </body>
// when one exists.
func (i *Instrumentor) appendPixel(html, trackingID string) string {
	pixel := fmt.Sprintf(`<img src="%s/t/o/%s" width="1" height="1" style="display:none" alt="" />`,
		i.baseURL, trackingID)
	if strings.Contains(html, "</body>") {
		return strings.Replace(html, "</body>", pixel+"</body>", 1)
	}
	return html + pixel
}

func trackable(href string) bool {
	if strings.HasPrefix(href, "#") {
		return false
	}
	if strings.HasPrefix(strings.ToLower(href), "mailto:") {
		return false
	}
	return true
}
