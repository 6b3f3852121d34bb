package ble

import (
	"reflect"
	"testing"
)

func collect(lines [][]byte) []string {
	out := []string{}
	for _, l := range lines {
		out = append(out, string(l))
	}
	return out
}

func TestLineBufferWholeLine(t *testing.T) {
	var b lineBuffer
	got := collect(b.feed([]byte("41 0C 1A F8\r")))
	if !reflect.DeepEqual(got, []string{"41 0C 1A F8"}) {
		t.Errorf("got %v", got)
	}
}

func TestLineBufferSplitAcrossChunks(t *testing.T) {
	var b lineBuffer
	if got := b.feed([]byte("41 0C ")); len(got) != 0 {
		t.Fatalf("partial chunk must not emit lines, got %v", collect(got))
	}
	got := collect(b.feed([]byte("1A F8\r>")))
	if !reflect.DeepEqual(got, []string{"41 0C 1A F8"}) {
		t.Errorf("got %v", got)
	}
}

func TestLineBufferConcatenatedLines(t *testing.T) {
	var b lineBuffer
	got := collect(b.feed([]byte("41 0C 1A F8\r41 0D 32\r\n>")))
	want := []string{"41 0C 1A F8", "41 0D 32"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLineBufferDropsEmptySegments(t *testing.T) {
	var b lineBuffer
	if got := b.feed([]byte("\r\r\n  \r>")); len(got) != 0 {
		t.Errorf("expected no lines, got %v", collect(got))
	}
}

func TestLineBufferReset(t *testing.T) {
	var b lineBuffer
	b.feed([]byte("41 0C"))
	b.reset()
	got := collect(b.feed([]byte(" 1A F8\r")))
	if !reflect.DeepEqual(got, []string{"1A F8"}) {
		t.Errorf("reset must drop the partial line, got %v", got)
	}
}
