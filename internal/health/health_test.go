package health

import "testing"

func TestMatchesHint(t *testing.T) {
	hints := []string{"Mesen", "emulator"}

	tests := []struct {
		name string
		want bool
	}{
		{"Mesen", true},
		{"mesen2", true},
		{"MyEmulatorHost", true},
		{"firefox", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := matchesHint(tt.name, hints); got != tt.want {
			t.Errorf("matchesHint(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMatchesHintEmptyHints(t *testing.T) {
	if matchesHint("Mesen", nil) {
		t.Error("matchesHint with no hints = true, want false")
	}
	if matchesHint("Mesen", []string{""}) {
		t.Error("empty hint string must not match everything")
	}
}
