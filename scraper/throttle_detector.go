package scraper

import (
	"regexp"
	"strings"
)

// ThrottleDetector recognises interstitial pages an upstream serves instead of
// data when it is rate limiting or down for maintenance.
type ThrottleDetector struct {
	throttlePatterns  []*regexp.Regexp
	challengePatterns []*regexp.Regexp
	outagePatterns    []*regexp.Regexp
}

// NewThrottleDetector creates a detector with the default pattern set
func NewThrottleDetector() *ThrottleDetector {
	return &ThrottleDetector{
		throttlePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)rate limit`),
			regexp.MustCompile(`(?i)too many requests`),
			regexp.MustCompile(`(?i)access denied`),
			regexp.MustCompile(`(?i)request blocked`),
			regexp.MustCompile(`(?i)please wait`),
		},
		challengePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)captcha`),
			regexp.MustCompile(`(?i)verify you are human`),
			regexp.MustCompile(`(?i)checking your browser`),
			regexp.MustCompile(`(?i)ddos protection`),
		},
		outagePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)429 too many requests`),
			regexp.MustCompile(`(?i)503 service unavailable`),
			regexp.MustCompile(`(?i)maintenance`),
			regexp.MustCompile(`(?i)temporarily unavailable`),
		},
	}
}

// Detect reports whether body looks like a throttle, challenge or outage
// page. Structured payloads (JSON or XML content types) are never flagged.
func (td *ThrottleDetector) Detect(body []byte, contentType string) (bool, string) {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "json") || strings.Contains(ct, "xml") {
		return false, ""
	}

	content := string(body)
	if len(content) > 64<<10 {
		content = content[:64<<10]
	}

	var reasons []string
	for _, p := range td.challengePatterns {
		if p.MatchString(content) {
			reasons = append(reasons, "challenge: "+p.String())
		}
	}
	for _, p := range td.throttlePatterns {
		if p.MatchString(content) {
			reasons = append(reasons, "throttle: "+p.String())
		}
	}
	for _, p := range td.outagePatterns {
		if p.MatchString(content) {
			reasons = append(reasons, "outage: "+p.String())
		}
	}

	if len(reasons) == 0 {
		return false, ""
	}
	return true, strings.Join(reasons, "; ")
}
