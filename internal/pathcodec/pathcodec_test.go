package pathcodec

import "testing"

func TestEncode(t *testing.T) {
	cases := map[string]string{
		"/proj/a":            "-proj-a",
		"/home/user/work":    "-home-user-work",
		"relative/path":      "relative-path",
		`C:\Users\dev\proj`:  "C:-Users-dev-proj",
		"":                   "",
		"/":                  "-",
	}
	for input, want := range cases {
		if got := Encode(input); got != want {
			t.Errorf("Encode(%q): got %q, want %q", input, got, want)
		}
	}
}

func TestDecode(t *testing.T) {
	cases := map[string]string{
		"-proj-a":         "/proj/a",
		"-home-user-work": "/home/user/work",
		"relative-path":   "relative/path",
		"":                "",
	}
	for input, want := range cases {
		if got := Decode(input); got != want {
			t.Errorf("Decode(%q): got %q, want %q", input, got, want)
		}
	}
}

func TestRoundTripPlainPaths(t *testing.T) {
	for _, path := range []string{"/proj/a", "/home/user/work", "/x"} {
		if got := Decode(Encode(path)); got != path {
			t.Errorf("round trip %q: got %q", path, got)
		}
	}
}

func TestDashSegmentsAreLossy(t *testing.T) {
	// Known limitation: a literal dash inside a segment is indistinguishable
	// from a separator after encoding.
	original := "/home/user/my-proj"
	decoded := Decode(Encode(original))
	if decoded == original {
		t.Fatalf("expected lossy decode for %q, got exact round trip", original)
	}
	if decoded != "/home/user/my/proj" {
		t.Errorf("decode: got %q, want /home/user/my/proj", decoded)
	}
}
