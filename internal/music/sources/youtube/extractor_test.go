package youtube

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"command with url", "!play https://youtube.com/watch?v=dQw4w9WgXcQ&t=42", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"extra params before v", "https://www.youtube.com/watch?feature=share&v=abcdefghijk", "https://www.youtube.com/watch?v=abcdefghijk", true},
		{"short url", "listen youtu.be/abc-DEF_123?si=xyz", "https://www.youtube.com/watch?v=abc-DEF_123", true},
		{"embed url", "https://www.youtube.com/embed/dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"music subdomain", "https://music.youtube.com/watch?v=dQw4w9WgXcQ&list=RD", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"first of many", "youtu.be/aaaaaaaaaaa youtu.be/bbbbbbbbbbb", "https://www.youtube.com/watch?v=aaaaaaaaaaa", true},
		{"no url", "!play never gonna give you up", "", false},
		{"other site", "https://vimeo.com/123456789", "", false},
		{"id too short", "youtu.be/abc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extractor{}.Extract(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Extract(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
