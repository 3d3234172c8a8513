package workflow

import "testing"

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name   string
		ev     Event
		want   int64
		wantOK bool
	}{
		{name: "numeric id", ev: Event{Text: "-100111"}, want: -100111, wantOK: true},
		{name: "padded id", ev: Event{Text: "  -100111\n"}, want: -100111, wantOK: true},
		{name: "forwarded", ev: Event{Text: "hello", ForwardedChatID: -100222}, want: -100222, wantOK: true},
		{name: "text", ev: Event{Text: "my channel"}},
		{name: "empty", ev: Event{}},
		{name: "zero", ev: Event{Text: "0"}},
		{name: "link", ev: Event{Text: "https://t.me/c/111"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTarget(tt.ev)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseTarget(%+v) = %d, %v; want %d, %v", tt.ev, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIsCancel(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"cancel", true},
		{"Cancel", true},
		{"/cancel", true},
		{"❌ Cancel", true},
		{" cancel ", true},
		{"cancelled", false},
		{"-100111", false},
	}
	for _, tt := range tests {
		if got := IsCancel(tt.text); got != tt.want {
			t.Errorf("IsCancel(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
