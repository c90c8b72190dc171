package sanitize

import "testing"

func TestStripHTML(t *testing.T) {
	cases := map[string]string{
		"  plain  ":                             "plain",
		"<b>bold</b> text":                      "bold text",
		"&lt;script&gt;alert(1)&lt;/script&gt;": "alert(1)",
		"a &amp; b":                             "a & b",
	}
	for in, want := range cases {
		if got := StripHTML(in); got != want {
			t.Errorf("StripHTML(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLineCollapsesWhitespace(t *testing.T) {
	if got := Line(" John \t\n  Smith "); got != "John Smith" {
		t.Fatalf("got %q", got)
	}
}

func TestTextKeepsLineBreaks(t *testing.T) {
	if got := Text("first\nsecond"); got != "first\nsecond" {
		t.Fatalf("got %q", got)
	}
}

func TestTextPtrNil(t *testing.T) {
	if TextPtr(nil) != nil {
		t.Fatal("expected nil")
	}
}
