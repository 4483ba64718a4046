package syncpack

import "fmt"

// The offset model: the creator's base offset and drift correction are
// shared by every viewer; the local adjustment belongs to one viewer and
// never reaches the server. The effective offset is their plain sum,
// recomputed on every read. Sign convention: positive means the official
// track starts after the reaction's zero point. No clamping — deciding what
// playback action a given offset implies is the presentation layer's job.

// EffectiveOffsetMs combines the pack's base offset, its drift correction,
// and the viewer's local adjustment into the single authoritative offset.
func (p *SyncPack) EffectiveOffsetMs(localOffsetMs int64) int64 {
	return p.BaseOffsetMs + p.DriftCorrectionMs + localOffsetMs
}

// Nudge shifts a local adjustment by deltaMs. Unbounded and deliberately
// not idempotent: applying the same nudge twice doubles it, so triggering
// controls must be disabled until acknowledged.
func Nudge(currentMs, deltaMs int64) int64 {
	return currentMs + deltaMs
}

// ResetOffsetMs is the local adjustment after a reset: exactly zero. A reset
// removes only the viewer's correction; the creator's base offset stays.
const ResetOffsetMs int64 = 0

// FormatMs renders a signed millisecond value the way offsets are shown
// everywhere: "+350ms", "-1.200s".
func FormatMs(ms int64) string {
	sign := "+"
	abs := ms
	if ms < 0 {
		sign = "-"
		abs = -ms
	}
	seconds := abs / 1000
	remaining := abs % 1000
	if seconds == 0 {
		return fmt.Sprintf("%s%dms", sign, remaining)
	}
	return fmt.Sprintf("%s%d.%03ds", sign, seconds, remaining)
}
