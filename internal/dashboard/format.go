package dashboard

import (
	"fmt"
	"sort"
	"strings"

	"stockadvisor/pkg/advisor"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPrice formats an optional price as X.XX, or "-" when absent.
func FormatPrice(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *p)
}

// FormatBand formats a target band as "low-high", or "-" when absent.
func FormatBand(b *advisor.TargetBand) string {
	if b == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f-%.2f", b.Low, b.High)
}

// FormatScore formats a composite score with two decimals.
func FormatScore(s float64) string {
	return fmt.Sprintf("%.2f", s)
}

// FormatConfidence shows numeric confidence with two decimals and textual
// confidence as given.
func FormatConfidence(c advisor.Confidence) string {
	if c.IsText() {
		return c.Text
	}
	return fmt.Sprintf("%.2f", c.Value)
}

// FormatCap returns the cap bucket, or "-" when the service did not report one.
func FormatCap(c advisor.Cap) string {
	if c == "" {
		return "-"
	}
	return string(c)
}

// FormatHealth renders the health object as sorted key=value pairs.
func FormatHealth(h advisor.Health) string {
	if len(h) == 0 {
		return "unknown"
	}
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, h[k])
	}
	return strings.Join(parts, " ")
}
