package examflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdjustedTimes(t *testing.T) {
	qs := scenarioQuestions()

	cases := []struct {
		number      int
		prep, speak int
	}{
		{1, 45, 45},
		{3, 45, 30},
		{5, 3, 15},
		{6, 3, 15},
		{7, 3, 30},
		{8, 3, 15},
		{9, 3, 15},
		{10, 3, 30},
		{11, 30, 45},
	}
	for _, c := range cases {
		prep, speak := AdjustedTimes(qs, c.number-1)
		require.Equal(t, c.prep, prep, "prep of question %d", c.number)
		require.Equal(t, c.speak, speak, "speak of question %d", c.number)
	}
}

func TestAdjustedTimesIgnoresStoredValuesForSets(t *testing.T) {
	set := []Question{
		{Number: 1, Part: 4, SetID: "a", Order: 1, PreparationTime: 60, SpeakingTime: 90},
		{Number: 2, Part: 4, SetID: "a", Order: 2, PreparationTime: 60, SpeakingTime: 90},
		{Number: 3, Part: 4, SetID: "a", Order: 3, PreparationTime: 60, SpeakingTime: 90},
		{Number: 4, Part: 4, SetID: "b", Order: 1, PreparationTime: 0, SpeakingTime: 0},
		{Number: 5, Part: 4, SetID: "b", Order: 2, PreparationTime: 0, SpeakingTime: 0},
		{Number: 6, Part: 4, SetID: "b", Order: 3, PreparationTime: 0, SpeakingTime: 0},
	}

	want := []int{15, 15, 30, 15, 15, 30}
	for i := range set {
		prep, speak := AdjustedTimes(set, i)
		require.Equal(t, 3, prep)
		require.Equal(t, want[i], speak, "question %d", i+1)
	}
}

func TestNeedsInfoReading(t *testing.T) {
	cases := []struct {
		name string
		q    Question
		want bool
	}{
		{"part 1", Question{Part: 1, InfoText: "x"}, false},
		{"part 2", Question{Part: 2}, false},
		{"part 3 first", Question{Part: 3, Order: 1}, true},
		{"part 3 later without info", Question{Part: 3, Order: 3}, true},
		{"part 4 first with text", Question{Part: 4, Order: 1, InfoText: "schedule"}, true},
		{"part 4 first with image", Question{Part: 4, Order: 1, InfoImageURL: "/media/a.png"}, true},
		{"part 4 first without info", Question{Part: 4, Order: 1}, false},
		{"part 4 second", Question{Part: 4, Order: 2, InfoText: "schedule"}, false},
		{"part 5", Question{Part: 5, InfoText: "x"}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, NeedsInfoReading(c.q))
		})
	}
}

func TestPartIntroKey(t *testing.T) {
	require.Equal(t, GuideKey("part3-intro"), PartIntroKey(3))
	require.Equal(t, "", GuideSet{}.URL(PartIntroKey(1)))
}
