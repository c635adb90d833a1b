package telemetry

import "regexp"

var uptimePattern = regexp.MustCompile(`(?i)(\d+)\sday\s(\d+):(\d+):(\d+)`)

// NormalizeUptime rewrites "0 day 0:34:33" as
// "0 day(s) 0 hour(s) 34 minute(s) 33 second(s)". Input in any other format
// is returned unchanged.
func NormalizeUptime(raw string) string {
	m := uptimePattern.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	return m[1] + " day(s) " + m[2] + " hour(s) " + m[3] + " minute(s) " + m[4] + " second(s)"
}
