package util

import "testing"

func TestParseNumber(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "decimal dot", input: "ABV 6.7%", want: 6.7},
		{name: "decimal comma", input: "ABV 7,5%", want: 7.5},
		{name: "integer", input: "IBU 69", want: 69},
		{name: "bare number", input: "17", want: 17},
		{name: "no number", input: "Porter - American", want: 0},
		{name: "empty", input: "", want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseNumber(tc.input); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestContainsFold(t *testing.T) {
	if !ContainsFold("Комбуча classic", "комбуча") {
		t.Fatalf("cyrillic fold failed")
	}
	if ContainsFold("Porter", "abv") {
		t.Fatalf("false positive")
	}
}
