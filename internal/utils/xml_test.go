package utils

import "testing"

func TestXMLEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"a & b", "a &amp; b"},
		{"<tag>", "&lt;tag&gt;"},
		{`say "hi"`, "say &quot;hi&quot;"},
		{"C & C++ <libraries> \"quoted\"", "C &amp; C++ &lt;libraries&gt; &quot;quoted&quot;"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := XMLEscape(tt.in); got != tt.want {
			t.Errorf("XMLEscape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
