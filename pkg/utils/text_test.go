package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("a–b–c", 3); got != "a–b..." {
		t.Errorf("multi-byte characters must not be split, got %q", got)
	}
}

func TestPlural(t *testing.T) {
	if Plural(1, "chunk") != "chunk" || Plural(0, "chunk") != "chunks" || Plural(7, "file") != "files" {
		t.Error("unexpected plural forms")
	}
}
