package obd

import "fmt"

// groupDTCs pairs the report bytes into 4-hex-digit trouble codes.
// An all-zero pair is padding (no code) and is skipped, as is a
// trailing unpaired byte.
func groupDTCs(raw []byte) []string {
	codes := []string{}
	for i := 0; i+1 < len(raw); i += 2 {
		if raw[i] == 0 && raw[i+1] == 0 {
			continue
		}
		codes = append(codes, fmt.Sprintf("%02X%02X", raw[i], raw[i+1]))
	}
	return codes
}
