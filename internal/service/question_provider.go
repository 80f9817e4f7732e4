package service

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/jinzhu/copier"
	"github.com/stemsi/speaking-backend/internal/examflow"
	"github.com/stemsi/speaking-backend/internal/model"
)

// SetSize is the number of questions in a Part 3 or Part 4 set.
const SetSize = 3

// PartQuota is how many items of one part a test draws. For set parts an
// item is a whole set of SetSize questions.
type PartQuota struct {
	Part  int
	Count int
	Sets  bool
}

// DefaultQuotas is the standard eleven-question test layout.
var DefaultQuotas = []PartQuota{
	{Part: 1, Count: 2},
	{Part: 2, Count: 2},
	{Part: 3, Count: 1, Sets: true},
	{Part: 4, Count: 1, Sets: true},
	{Part: 5, Count: 1},
}

// SelectQuestions draws a random test from the active bank. Set parts only
// consider complete sets and keep their question order. Questions come back
// in part order; the caller numbers them from 1.
func SelectQuestions(bank []model.Question, quotas []PartQuota, rng *rand.Rand) ([]model.Question, error) {
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}

	byPart := make(map[int][]model.Question)
	for _, q := range bank {
		if q.IsActive {
			byPart[q.Part] = append(byPart[q.Part], q)
		}
	}

	var out []model.Question
	for _, quota := range quotas {
		pool := byPart[quota.Part]
		if !quota.Sets {
			var singles []model.Question
			for _, q := range pool {
				if q.QuestionSetID == nil {
					singles = append(singles, q)
				}
			}
			if len(singles) < quota.Count {
				return nil, fmt.Errorf("%w: part %d has %d of %d", ErrInsufficientQuestions, quota.Part, len(singles), quota.Count)
			}
			shuffle(len(singles), func(i, j int) { singles[i], singles[j] = singles[j], singles[i] })
			out = append(out, singles[:quota.Count]...)
			continue
		}

		sets := completeSets(pool)
		if len(sets) < quota.Count {
			return nil, fmt.Errorf("%w: part %d has %d complete sets of %d", ErrInsufficientQuestions, quota.Part, len(sets), quota.Count)
		}
		shuffle(len(sets), func(i, j int) { sets[i], sets[j] = sets[j], sets[i] })
		for _, set := range sets[:quota.Count] {
			out = append(out, set...)
		}
	}
	return out, nil
}

// completeSets groups questions by set id and keeps sets of exactly SetSize,
// each sorted by question order.
func completeSets(pool []model.Question) [][]model.Question {
	grouped := make(map[string][]model.Question)
	var ids []string
	for _, q := range pool {
		if q.QuestionSetID == nil {
			continue
		}
		id := *q.QuestionSetID
		if _, ok := grouped[id]; !ok {
			ids = append(ids, id)
		}
		grouped[id] = append(grouped[id], q)
	}
	sort.Strings(ids)

	var sets [][]model.Question
	for _, id := range ids {
		set := grouped[id]
		if len(set) != SetSize {
			continue
		}
		sort.Slice(set, func(i, j int) bool { return set[i].QuestionOrder < set[j].QuestionOrder })
		sets = append(sets, set)
	}
	return sets
}

// toAttemptQuestions numbers the selected questions from 1.
func toAttemptQuestions(selected []model.Question) ([]model.AttemptQuestion, error) {
	out := make([]model.AttemptQuestion, len(selected))
	for i := range selected {
		if err := copier.Copy(&out[i], &selected[i]); err != nil {
			return nil, fmt.Errorf("map question %d: %w", selected[i].ID, err)
		}
		out[i].QuestionID = selected[i].ID
		out[i].QuestionNumber = i + 1
	}
	return out, nil
}

// ToExamflow converts stored attempt questions into the exam engine's form.
func ToExamflow(qs []model.AttemptQuestion) []examflow.Question {
	out := make([]examflow.Question, len(qs))
	for i, q := range qs {
		out[i] = examflow.Question{
			ID:              q.QuestionID,
			Number:          q.QuestionNumber,
			Part:            q.Part,
			SetID:           deref(q.QuestionSetID),
			Order:           q.QuestionOrder,
			Text:            q.QuestionText,
			InfoText:        deref(q.InfoText),
			InfoImageURL:    deref(q.InfoImageURL),
			InfoAudioURL:    deref(q.InfoAudioURL),
			AudioURL:        deref(q.AudioURL),
			ImageURL:        deref(q.ImageURL),
			PreparationTime: q.PreparationTime,
			SpeakingTime:    q.SpeakingTime,
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
