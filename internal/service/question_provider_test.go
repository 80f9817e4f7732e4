package service

import (
	"math/rand/v2"
	"testing"

	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stretchr/testify/require"
)

type bankBuilder struct {
	nextID int
	bank   []model.Question
}

func (b *bankBuilder) single(part int) {
	b.nextID++
	b.bank = append(b.bank, model.Question{ID: b.nextID, Part: part, QuestionOrder: 1, IsActive: true})
}

// set appends size questions of one set in reverse order.
func (b *bankBuilder) set(part int, id string, size int) {
	setID := id
	for order := size; order >= 1; order-- {
		b.nextID++
		b.bank = append(b.bank, model.Question{ID: b.nextID, Part: part, QuestionSetID: &setID, QuestionOrder: order, IsActive: true})
	}
}

func fullBank() *bankBuilder {
	b := &bankBuilder{}
	for i := 0; i < 3; i++ {
		b.single(1)
		b.single(2)
		b.single(5)
	}
	b.set(3, "set-3a", 3)
	b.set(3, "set-3b", 3)
	b.set(4, "set-4a", 3)
	return b
}

func TestSelectQuestionsLayout(t *testing.T) {
	b := fullBank()
	rng := rand.New(rand.NewPCG(1, 2))

	selected, err := SelectQuestions(b.bank, DefaultQuotas, rng)
	require.NoError(t, err)
	require.Len(t, selected, 11)

	parts := make([]int, len(selected))
	for i, q := range selected {
		parts[i] = q.Part
	}
	require.Equal(t, []int{1, 1, 2, 2, 3, 3, 3, 4, 4, 4, 5}, parts)

	// Set questions stay together and in order.
	for _, span := range [][2]int{{4, 7}, {7, 10}} {
		set := selected[span[0]:span[1]]
		for i, q := range set {
			require.NotNil(t, q.QuestionSetID)
			require.Equal(t, *set[0].QuestionSetID, *q.QuestionSetID)
			require.Equal(t, i+1, q.QuestionOrder)
		}
	}
}

func TestSelectQuestionsNoDuplicates(t *testing.T) {
	b := fullBank()
	for seed := uint64(0); seed < 20; seed++ {
		selected, err := SelectQuestions(b.bank, DefaultQuotas, rand.New(rand.NewPCG(seed, seed)))
		require.NoError(t, err)
		seen := map[int]bool{}
		for _, q := range selected {
			require.False(t, seen[q.ID], "question %d drawn twice", q.ID)
			seen[q.ID] = true
		}
	}
}

func TestSelectQuestionsInsufficient(t *testing.T) {
	cases := map[string]func(b *bankBuilder){
		"part 5 empty": func(b *bankBuilder) {
			for i := 0; i < 2; i++ {
				b.single(1)
				b.single(2)
			}
			b.set(3, "s3", 3)
			b.set(4, "s4", 3)
		},
		"incomplete set": func(b *bankBuilder) {
			for i := 0; i < 2; i++ {
				b.single(1)
				b.single(2)
			}
			b.single(5)
			b.set(3, "s3", 2)
			b.set(4, "s4", 3)
		},
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			b := &bankBuilder{}
			build(b)
			_, err := SelectQuestions(b.bank, DefaultQuotas, nil)
			require.ErrorIs(t, err, ErrInsufficientQuestions)
		})
	}
}

func TestSelectQuestionsSkipsInactive(t *testing.T) {
	b := fullBank()
	for i := range b.bank {
		if b.bank[i].Part == 5 {
			b.bank[i].IsActive = false
		}
	}
	_, err := SelectQuestions(b.bank, DefaultQuotas, nil)
	require.ErrorIs(t, err, ErrInsufficientQuestions)
}

func TestCompleteSets(t *testing.T) {
	b := &bankBuilder{}
	b.set(3, "b", 3)
	b.set(3, "a", 3)
	b.set(3, "short", 2)
	b.single(3)

	sets := completeSets(b.bank)
	require.Len(t, sets, 2)
	require.Equal(t, "a", *sets[0][0].QuestionSetID)
	require.Equal(t, "b", *sets[1][0].QuestionSetID)
	for _, set := range sets {
		require.Equal(t, []int{1, 2, 3}, []int{set[0].QuestionOrder, set[1].QuestionOrder, set[2].QuestionOrder})
	}
}

func TestCoverage(t *testing.T) {
	b := &bankBuilder{}
	b.single(1)
	b.single(1)
	b.single(2)
	b.set(3, "s3", 3)
	b.set(4, "s4", 2)

	got := coverage(b.bank, DefaultQuotas)
	require.Equal(t, []PartCoverage{
		{Part: 1, Active: 2, Required: 2, Ready: true},
		{Part: 2, Active: 1, Required: 2, Ready: false},
		{Part: 3, Active: 3, Required: 3, Ready: true},
		{Part: 4, Active: 2, Required: 3, Ready: false},
		{Part: 5, Active: 0, Required: 1, Ready: false},
	}, got)
}

func TestToAttemptQuestionsNumbersFromOne(t *testing.T) {
	setID := "s"
	text := "Shared info"
	selected := []model.Question{
		{ID: 10, Part: 1, QuestionText: "Read aloud", PreparationTime: 45, SpeakingTime: 45},
		{ID: 20, Part: 3, QuestionSetID: &setID, QuestionOrder: 1, InfoText: &text, PreparationTime: 3, SpeakingTime: 15},
	}

	out, err := toAttemptQuestions(selected)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, 1, out[0].QuestionNumber)
	require.Equal(t, 10, out[0].QuestionID)
	require.Equal(t, "Read aloud", out[0].QuestionText)
	require.Equal(t, 2, out[1].QuestionNumber)
	require.Equal(t, 20, out[1].QuestionID)

	flow := ToExamflow(out)
	require.Equal(t, "s", flow[1].SetID)
	require.Equal(t, "Shared info", flow[1].InfoText)
	require.Empty(t, flow[0].InfoText)
	require.Equal(t, 15, flow[1].SpeakingTime)
}
