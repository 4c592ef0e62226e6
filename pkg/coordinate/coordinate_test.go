// SPDX-License-Identifier: MPL-2.0

package coordinate

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Coordinate
		dynamic bool
	}{
		{
			name:  "pinned",
			input: "org.example:hello:1.0.0",
			want:  Coordinate{Group: "org.example", Artifact: "hello", Version: "1.0.0"},
		},
		{
			name:    "no version",
			input:   "org.example:hello",
			want:    Coordinate{Group: "org.example", Artifact: "hello"},
			dynamic: true,
		},
		{
			name:    "latest sentinel",
			input:   "org.example:hello:latest",
			want:    Coordinate{Group: "org.example", Artifact: "hello", Version: "latest"},
			dynamic: true,
		},
		{
			name:    "latest sentinel is case insensitive",
			input:   "org.example:hello:LATEST",
			want:    Coordinate{Group: "org.example", Artifact: "hello", Version: "LATEST"},
			dynamic: true,
		},
		{
			name:  "surrounding whitespace",
			input: "  com.github.ricksbrown:cowsay:1.1.0 ",
			want:  Coordinate{Group: "com.github.ricksbrown", Artifact: "cowsay", Version: "1.1.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
			if got.IsDynamic() != tt.dynamic {
				t.Errorf("IsDynamic() = %v, want %v", got.IsDynamic(), tt.dynamic)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"   ",
		"org.example",
		"org.example:",
		":hello",
		"org.example::1.0",
		"org.example:hello:1.0:extra",
		"org/example:hello",
		`org.example:he\llo`,
		"org.example:hello:1.0/../x",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			_, err := Parse(input)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", input)
			}
			if !errors.Is(err, ErrMalformedCoordinate) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformedCoordinate", input, err)
			}
			var me *MalformedError
			if !errors.As(err, &me) {
				t.Fatalf("Parse(%q) error is not *MalformedError", input)
			}
			if me.Input != input {
				t.Errorf("MalformedError.Input = %q, want %q", me.Input, input)
			}
		})
	}
}

func TestCoordinate_Key(t *testing.T) {
	t.Parallel()

	dynamic := MustParse("org.example:hello")
	latest := MustParse("org.example:hello:latest")
	pinned := MustParse("org.example:hello:1.0.0")

	if dynamic.Key() != "org.example:hello" {
		t.Errorf("dynamic Key() = %q", dynamic.Key())
	}
	if latest.Key() != dynamic.Key() {
		t.Errorf("latest Key() = %q, want %q", latest.Key(), dynamic.Key())
	}
	if pinned.Key() != "org.example:hello:1.0.0" {
		t.Errorf("pinned Key() = %q", pinned.Key())
	}
	if pinned.Key() == dynamic.Key() {
		t.Error("pinned and dynamic keys must differ")
	}
}

func TestCoordinate_WithVersion(t *testing.T) {
	t.Parallel()

	c := MustParse("org.example:hello")
	pinned := c.WithVersion("2.0")

	if c.Version != "" {
		t.Errorf("WithVersion mutated the receiver: %+v", c)
	}
	if pinned.String() != "org.example:hello:2.0" {
		t.Errorf("String() = %q", pinned.String())
	}
	if pinned.Unversioned() != c {
		t.Errorf("Unversioned() = %+v, want %+v", pinned.Unversioned(), c)
	}
}
