package main

import (
	"testing"

	"github.com/odvcencio/padfs/pkg/image"
)

func TestFlagString(t *testing.T) {
	cases := []struct {
		flags image.Flags
		want  string
	}{
		{0, "-"},
		{image.FlagGzip, "gzip"},
		{image.FlagCache, "cache"},
		{image.FlagGzip | image.FlagCache, "gzip cache"},
	}
	for _, c := range cases {
		if got := flagString(c.flags); got != c.want {
			t.Fatalf("flagString(%b) = %q, want %q", c.flags, got, c.want)
		}
	}
}
