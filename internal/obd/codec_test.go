package obd

import (
	"errors"
	"testing"

	"github.com/Nobody-OS/OBDII-Gauge/internal/types"
)

func TestEncodeRequest(t *testing.T) {
	b, err := EncodeRequest("010C")
	if err != nil {
		t.Fatalf("EncodeRequest failed: %v", err)
	}
	if string(b) != "010C\r" {
		t.Errorf("Expected %q, got %q", "010C\r", string(b))
	}
}

func TestEncodeRequestEmpty(t *testing.T) {
	if _, err := EncodeRequest(""); err == nil {
		t.Error("Expected error for empty command")
	}
}

func TestDecodeRPM(t *testing.T) {
	resp, err := DecodeResponse([]byte("41 0C 1A F8"))
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if resp.Reading == nil {
		t.Fatal("Expected a reading")
	}
	if resp.Reading.Param != types.ParamRPM {
		t.Errorf("Expected ParamRPM, got %v", resp.Reading.Param)
	}
	if resp.Reading.Value != 1726.0 {
		t.Errorf("Expected 1726.0 rpm, got %v", resp.Reading.Value)
	}
}

func TestDecodeRPMScaling(t *testing.T) {
	// ((A*256)+B)/4 must hold exactly for arbitrary byte values.
	cases := []struct {
		a, b byte
		want float64
	}{
		{0x00, 0x00, 0},
		{0x00, 0x04, 1},
		{0x1A, 0xF8, 1726},
		{0xFF, 0xFF, 16383.75},
	}
	for _, c := range cases {
		line := []byte{'4', '1', ' ', '0', 'C', ' '}
		line = append(line, hexPair(c.a)...)
		line = append(line, ' ')
		line = append(line, hexPair(c.b)...)
		resp, err := DecodeResponse(line)
		if err != nil {
			t.Fatalf("DecodeResponse(%q) failed: %v", line, err)
		}
		if resp.Reading.Value != c.want {
			t.Errorf("A=%02X B=%02X: expected %v, got %v", c.a, c.b, c.want, resp.Reading.Value)
		}
	}
}

func hexPair(b byte) []byte {
	const digits = "0123456789ABCDEF"
	return []byte{digits[b>>4], digits[b&0x0F]}
}

func TestDecodeSpeed(t *testing.T) {
	resp, err := DecodeResponse([]byte("41 0D 32"))
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if resp.Reading.Param != types.ParamSpeed || resp.Reading.Value != 50 {
		t.Errorf("Expected speed 50, got %v=%v", resp.Reading.Param, resp.Reading.Value)
	}
}

func TestDecodeCoolantTemp(t *testing.T) {
	resp, err := DecodeResponse([]byte("41 05 5A"))
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if resp.Reading.Param != types.ParamCoolantTemp || resp.Reading.Value != 50 {
		t.Errorf("Expected coolant 50, got %v=%v", resp.Reading.Param, resp.Reading.Value)
	}
}

func TestDecodeCoolantNegative(t *testing.T) {
	resp, err := DecodeResponse([]byte("41 05 00"))
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if resp.Reading.Value != -40 {
		t.Errorf("Expected -40, got %v", resp.Reading.Value)
	}
}

func TestDecodeMAF(t *testing.T) {
	resp, err := DecodeResponse([]byte("41 10 01 F4"))
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if resp.Reading.Param != types.ParamMAF || resp.Reading.Value != 5.0 {
		t.Errorf("Expected maf 5.0, got %v=%v", resp.Reading.Param, resp.Reading.Value)
	}
}

func TestDecodeFuelRate(t *testing.T) {
	resp, err := DecodeResponse([]byte("41 5E 00 64"))
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if resp.Reading.Param != types.ParamFuelRate || resp.Reading.Value != 5.0 {
		t.Errorf("Expected fuel rate 5.0, got %v=%v", resp.Reading.Param, resp.Reading.Value)
	}
}

func TestDecodeTolerantOfNoise(t *testing.T) {
	// Carriage returns, nulls and the adapter prompt must not break
	// the header match.
	resp, err := DecodeResponse([]byte("\r\n 41 0D 32 \r>\x00"))
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if resp.Reading.Value != 50 {
		t.Errorf("Expected 50, got %v", resp.Reading.Value)
	}
}

func TestDecodeMalformedLength(t *testing.T) {
	_, err := DecodeResponse([]byte("41 0C 1A"))
	if !errors.Is(err, ErrMalformedLength) {
		t.Errorf("Expected ErrMalformedLength, got %v", err)
	}
}

func TestDecodeUnknownPid(t *testing.T) {
	_, err := DecodeResponse([]byte("41 FF 00"))
	if !errors.Is(err, ErrUnknownPid) {
		t.Errorf("Expected ErrUnknownPid, got %v", err)
	}
}

func TestDecodeUnknownMode(t *testing.T) {
	_, err := DecodeResponse([]byte("7F 01 12"))
	if !errors.Is(err, ErrUnknownPid) {
		t.Errorf("Expected ErrUnknownPid, got %v", err)
	}
}

func TestDecodeEmptyFrame(t *testing.T) {
	for _, line := range []string{"", "\r\n>", "NO DATA"} {
		_, err := DecodeResponse([]byte(line))
		if !errors.Is(err, ErrEmptyFrame) {
			t.Errorf("DecodeResponse(%q): expected ErrEmptyFrame, got %v", line, err)
		}
	}
}

func TestDecodeDTCReport(t *testing.T) {
	resp, err := DecodeResponse([]byte("43 01 71 02 03"))
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if resp.Reading != nil {
		t.Error("DTC report must not produce a reading")
	}
	if len(resp.DTCs) != 2 {
		t.Fatalf("Expected 2 codes, got %v", resp.DTCs)
	}
	if resp.DTCs[0] != "0171" || resp.DTCs[1] != "0203" {
		t.Errorf("Expected [0171 0203], got %v", resp.DTCs)
	}
}

func TestDecodeDTCReportEmpty(t *testing.T) {
	// All-zero pairs are padding for "no stored codes".
	resp, err := DecodeResponse([]byte("43 00 00 00 00"))
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if len(resp.DTCs) != 0 {
		t.Errorf("Expected no codes, got %v", resp.DTCs)
	}
	if resp.DTCs == nil {
		t.Error("Expected non-nil empty set so the store clears codes")
	}
}

func TestDecodeDTCReportOddTrailingByte(t *testing.T) {
	resp, err := DecodeResponse([]byte("43 01 71 02"))
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if len(resp.DTCs) != 1 || resp.DTCs[0] != "0171" {
		t.Errorf("Expected [0171], got %v", resp.DTCs)
	}
}
