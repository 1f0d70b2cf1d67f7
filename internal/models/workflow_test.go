package models

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateToolResult(t *testing.T) {
	short := "ok"
	if got := TruncateToolResult(short); got != short {
		t.Errorf("short result changed: %q", got)
	}

	exact := strings.Repeat("a", MaxToolResultLength)
	if got := TruncateToolResult(exact); got != exact {
		t.Errorf("exact-length result changed")
	}

	long := strings.Repeat("a", MaxToolResultLength+200)
	if got := TruncateToolResult(long); len(got) != MaxToolResultLength {
		t.Errorf("long result length = %d, want %d", len(got), MaxToolResultLength)
	}
}

func TestTruncateToolResultCountsRunes(t *testing.T) {
	// 多字节结果按字符截断，不能把一个符文从中间切开。
	long := strings.Repeat("故障", MaxToolResultLength)
	got := TruncateToolResult(long)

	if !utf8.ValidString(got) {
		t.Fatal("truncated result is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(got); n != MaxToolResultLength {
		t.Errorf("rune count = %d, want %d", n, MaxToolResultLength)
	}
	if !strings.HasPrefix(long, got) {
		t.Error("truncated result is not a prefix of the original")
	}

	// 字节数超限但字符数未超限的结果保持原样。
	fits := strings.Repeat("故", MaxToolResultLength)
	if got := TruncateToolResult(fits); got != fits {
		t.Error("result within the character limit was modified")
	}
}
