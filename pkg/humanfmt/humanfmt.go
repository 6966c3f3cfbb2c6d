// Package humanfmt provides human-readable formatting for log fields and
// CLI output.
package humanfmt

import (
	"fmt"
	"strconv"
	"time"
)

// Binary (IEC) units for bytes.
const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
	TiB = 1024 * GiB
)

type unit struct {
	size   float64
	suffix string
}

// Largest first.
var (
	iecUnits   = []unit{{TiB, "TiB"}, {GiB, "GiB"}, {MiB, "MiB"}, {KiB, "KiB"}}
	countUnits = []unit{{1e9, "B"}, {1e6, "M"}, {1e3, "K"}}
)

// scale picks the largest unit not above v. ok is false below the smallest.
func scale(v float64, units []unit) (scaled float64, suffix string, ok bool) {
	for _, u := range units {
		if v >= u.size {
			return v / u.size, u.suffix, true
		}
	}
	return v, "", false
}

// Bytes formats a byte count using IEC binary units, e.g. "1.23 GiB".
func Bytes(b int64) string {
	if v, suffix, ok := scale(float64(b), iecUnits); ok {
		return fmt.Sprintf("%.2f %s", v, suffix)
	}
	return fmt.Sprintf("%d B", b)
}

// Duration formats d compactly.
// Examples: "1.23s", "45.6ms", "789µs", "1m30s", "2h15m".
func Duration(d time.Duration) string {
	switch {
	case d < 0:
		return d.String()
	case d >= time.Hour:
		return wholeUnits(d, time.Hour, "h", time.Minute, "m")
	case d >= time.Minute:
		return wholeUnits(d, time.Minute, "m", time.Second, "s")
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fµs", float64(d)/float64(time.Microsecond))
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}

// wholeUnits renders d as "<n><big>[<m><small>]", omitting a zero remainder.
func wholeUnits(d, big time.Duration, bigSuffix string, small time.Duration, smallSuffix string) string {
	n := d / big
	rem := (d % big) / small
	if rem == 0 {
		return fmt.Sprintf("%d%s", n, bigSuffix)
	}
	return fmt.Sprintf("%d%s%d%s", n, bigSuffix, rem, smallSuffix)
}

// Throughput formats bytes per duration as a rate, e.g. "123.40 MiB/s".
func Throughput(bytes int64, d time.Duration) string {
	if d <= 0 {
		return "∞"
	}
	perSec := float64(bytes) / d.Seconds()
	if v, suffix, ok := scale(perSec, iecUnits); ok {
		return fmt.Sprintf("%.2f %s/s", v, suffix)
	}
	return fmt.Sprintf("%.0f B/s", perSec)
}

// Count formats n with a K/M/B suffix.
// Examples: "1.23M", "456", "1.00K".
func Count(n int64) string {
	if v, suffix, ok := scale(float64(n), countUnits); ok {
		return fmt.Sprintf("%.2f%s", v, suffix)
	}
	return strconv.FormatInt(n, 10)
}

// TrackLength formats a track duration in seconds as "m:ss", or "h:mm:ss"
// once it reaches an hour.
func TrackLength(seconds uint32) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// BPM formats a tempo with two decimals, dropping them for whole values.
// Examples: "128", "125.50".
func BPM(bpm float64) string {
	if bpm == float64(int64(bpm)) {
		return strconv.FormatInt(int64(bpm), 10)
	}
	return strconv.FormatFloat(bpm, 'f', 2, 64)
}
