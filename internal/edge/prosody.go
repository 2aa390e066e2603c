// Prosody parameter encoding for the read-aloud service.
package edge

import "fmt"

// Prosody format strings. The service expects explicitly signed values, so
// zero renders as "+0%" and "+0Hz".
const (
	rateFormat  = "%+d%%"
	pitchFormat = "%+dHz"
)

// neutralVolume pins the provider-side prosody volume. Volume is applied
// during post-processing instead, so the synthesized stream stays at full
// amplitude.
const neutralVolume = "+0%"

// FormatRate renders a speech-rate delta, in percent, as the signed string the
// synthesis provider expects. No range validation is performed; out-of-range
// values are passed through and may be rejected by the provider.
func FormatRate(percent int) string {
	return fmt.Sprintf(rateFormat, percent)
}

// FormatPitch renders a pitch delta, in Hz, as the signed string the synthesis
// provider expects. No range validation is performed.
func FormatPitch(hz int) string {
	return fmt.Sprintf(pitchFormat, hz)
}
