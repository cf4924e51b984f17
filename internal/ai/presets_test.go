package ai

import "testing"

func TestPresetFor(t *testing.T) {
	cases := []struct {
		level string
		depth int
		skill int
	}{
		{"easy", 1, 0},
		{"medium", 5, 5},
		{"hard", 10, 10},
		{"expert", 15, 20},
		{"EXPERT", 15, 20},
		{"  hard ", 10, 10},
		{"", 5, 5},
		{"nightmare", 5, 5},
	}
	for _, tc := range cases {
		p := PresetFor(tc.level)
		if p.Depth != tc.depth || p.Skill != tc.skill {
			t.Fatalf("PresetFor(%q) = depth %d skill %d, want depth %d skill %d",
				tc.level, p.Depth, p.Skill, tc.depth, tc.skill)
		}
	}
}

func TestLevelsKnown(t *testing.T) {
	seen := map[string]bool{}
	for _, name := range Levels() {
		seen[name] = true
	}
	for _, want := range []string{"easy", "medium", "hard", "expert"} {
		if !seen[want] {
			t.Fatalf("missing level %q in %v", want, Levels())
		}
	}
}
