// Package obd implements the wire codec for ELM327-style OBD-II
// adapters: encoding mode-01 poll commands and decoding the
// space-separated hex response lines into typed readings.
package obd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Nobody-OS/OBDII-Gauge/internal/types"
)

// Mode-01 PID command strings, in the order the scheduler polls them.
const (
	CmdRPM         = "010C"
	CmdSpeed       = "010D"
	CmdCoolantTemp = "0105"
	CmdMAF         = "0110"
	CmdFuelRate    = "015E"
	CmdDTCs        = "03"
)

// PollSequence is the fixed ordered PID sequence for one poll cycle.
var PollSequence = []string{CmdRPM, CmdSpeed, CmdCoolantTemp, CmdMAF, CmdFuelRate}

var (
	// ErrMalformedLength means the payload carries fewer data bytes
	// than the PID's layout requires. The frame is dropped.
	ErrMalformedLength = errors.New("obd: response payload too short")

	// ErrUnknownPid means the response header matched no recognized
	// PID. The frame is dropped.
	ErrUnknownPid = errors.New("obd: unrecognized response header")

	// ErrEmptyFrame means the line held no hex bytes at all (prompt
	// characters, echoes, blank lines).
	ErrEmptyFrame = errors.New("obd: empty frame")
)

// pidSpec describes the payload layout and scaling for one mode-01 PID.
type pidSpec struct {
	param types.Parameter
	width int // required data bytes after the header pair
	scale func(data []byte) float64
}

// Response headers are "41 <pid>" (mode-01 echo) keyed by the PID byte.
var pidTable = map[byte]pidSpec{
	0x0C: {types.ParamRPM, 2, func(d []byte) float64 {
		return (float64(d[0])*256 + float64(d[1])) / 4
	}},
	0x0D: {types.ParamSpeed, 1, func(d []byte) float64 {
		return float64(d[0])
	}},
	0x05: {types.ParamCoolantTemp, 1, func(d []byte) float64 {
		return float64(d[0]) - 40
	}},
	0x10: {types.ParamMAF, 2, func(d []byte) float64 {
		return (float64(d[0])*256 + float64(d[1])) / 100
	}},
	0x5E: {types.ParamFuelRate, 2, func(d []byte) float64 {
		return (float64(d[0])*256 + float64(d[1])) / 20
	}},
}

// EncodeRequest frames a PID command for the adapter: the ASCII
// command followed by a carriage return. PID legality is not checked
// beyond non-empty input; the adapter answers unknown commands with
// lines the decoder rejects.
func EncodeRequest(pid string) ([]byte, error) {
	if pid == "" {
		return nil, errors.New("obd: empty command")
	}
	return []byte(pid + "\r"), nil
}

// Response is one decoded adapter line: either a single PID reading or
// a mode-03 trouble-code report. Exactly one of the fields is set.
type Response struct {
	Reading *types.Reading
	DTCs    []string
}

// DecodeResponse parses one response line. Lines may carry leading or
// trailing whitespace, prompt characters and nulls; tokenizing on
// whitespace makes the match insensitive to chunk boundaries the
// transport already resolved.
func DecodeResponse(line []byte) (Response, error) {
	raw := hexBytes(line)
	if len(raw) == 0 {
		return Response{}, ErrEmptyFrame
	}

	switch raw[0] {
	case 0x41: // mode-01 echo: "41 <pid> <data...>"
		if len(raw) < 2 {
			return Response{}, ErrMalformedLength
		}
		spec, ok := pidTable[raw[1]]
		if !ok {
			return Response{}, fmt.Errorf("%w: pid %02X", ErrUnknownPid, raw[1])
		}
		data := raw[2:]
		if len(data) < spec.width {
			return Response{}, fmt.Errorf("%w: pid %02X needs %d bytes, got %d",
				ErrMalformedLength, raw[1], spec.width, len(data))
		}
		return Response{Reading: &types.Reading{
			Param: spec.param,
			Value: spec.scale(data[:spec.width]),
			Stamp: time.Now(),
		}}, nil

	case 0x43: // mode-03 report: "43 <code pairs...>"
		return Response{DTCs: groupDTCs(raw[1:])}, nil

	default:
		return Response{}, fmt.Errorf("%w: mode %02X", ErrUnknownPid, raw[0])
	}
}

// hexBytes tokenizes a line into its hex byte values, discarding
// control characters and prompt noise. A token that is not a two-digit
// hex pair ends the frame (adapters append ">" prompts and status
// words like "NO DATA").
func hexBytes(line []byte) []byte {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || r == '>' || r == 0x7F {
			return ' '
		}
		return r
	}, string(line))

	var out []byte
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) != 2 {
			break
		}
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			break
		}
		out = append(out, byte(v))
	}
	return out
}
