package main

import (
	"context"
	"fmt"
	"time"

	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/database"
	"github.com/stemsi/speaking-backend/internal/logger"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
	"github.com/stemsi/speaking-backend/internal/service"
)

func strPtr(s string) *string { return &s }

func main() {
	cfg := config.Load()
	log := logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	candidateRepo := repository.NewCandidateRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	candidateService := service.NewCandidateService(cfg, candidateRepo, nil, log)
	questionService := service.NewQuestionService(questionRepo, log)

	// ─── Candidates ────────────────────────────────────────────────────
	fmt.Println("=== Seeding 10 Candidates ===")

	names := []string{
		"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
		"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
	}
	reqs := make([]model.CreateCandidateRequest, len(names))
	for i, name := range names {
		reqs[i] = model.CreateCandidateRequest{Name: name, ExamNumber: fmt.Sprintf("TS%04d", i+1)}
	}
	result, err := candidateService.BulkCreate(ctx, reqs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed candidates")
	}
	fmt.Printf("Created %d candidates.\n", result.Created)
	for _, e := range result.Errors {
		fmt.Println("  skipped:", e)
	}

	// ─── Question Bank ─────────────────────────────────────────────────
	// Enough for one full test: two questions each for Parts 1, 2 and 5,
	// one set each for Parts 3 and 4.
	fmt.Println("\n=== Seeding Question Bank ===")

	singles := []model.QuestionRequest{
		{Part: 1, QuestionText: "Read the following announcement aloud: Welcome aboard flight 207 to Singapore. Please keep your seatbelt fastened while seated.", PreparationTime: 45, SpeakingTime: 45},
		{Part: 1, QuestionText: "Read the following advertisement aloud: Visit Green Valley Market this weekend for fresh produce, local crafts and live music.", PreparationTime: 45, SpeakingTime: 45},
		{Part: 2, QuestionText: "Describe the picture in as much detail as you can.", ImageURL: strPtr("/uploads/samples/office.jpg"), PreparationTime: 45, SpeakingTime: 30},
		{Part: 2, QuestionText: "Describe the picture in as much detail as you can.", ImageURL: strPtr("/uploads/samples/station.jpg"), PreparationTime: 45, SpeakingTime: 30},
		{Part: 5, QuestionText: "Some people prefer to work from home, while others prefer the office. Which do you prefer and why?", PreparationTime: 45, SpeakingTime: 60},
		{Part: 5, QuestionText: "Do you agree that companies should offer language training to every employee? Give reasons for your answer.", PreparationTime: 45, SpeakingTime: 60},
	}
	created := 0
	for _, req := range singles {
		if _, err := questionService.Create(ctx, req); err != nil {
			fmt.Printf("Error creating Part %d question: %v\n", req.Part, err)
			continue
		}
		created++
	}

	sets := []model.QuestionSetRequest{
		{
			Part:         3,
			InfoText:     strPtr("Imagine that a marketing firm is doing research in your area. You have agreed to a telephone interview about bookstores."),
			InfoAudioURL: strPtr("/uploads/samples/part3_bookstores.mp3"),
			Questions: []model.QuestionSetItem{
				{QuestionText: "How often do you go to a bookstore, and how do you usually get there?"},
				{QuestionText: "What kind of books do you usually buy?"},
				{QuestionText: "Would you prefer to buy books online or in a store? Why?"},
			},
		},
		{
			Part:     4,
			InfoText: strPtr("Annual Sales Conference, Grand Hotel. 9:00 Registration. 9:30 Keynote: Growing Regional Markets. 11:00 Workshop: Customer Retention (cancelled). 13:00 Lunch. 14:00 Panel: Online Channels."),
			Questions: []model.QuestionSetItem{
				{QuestionText: "Where is the conference being held and what time does registration start?"},
				{QuestionText: "I heard there is a workshop on customer retention at 11. Is that right?"},
				{QuestionText: "Could you tell me about the sessions scheduled after lunch?"},
			},
		},
	}
	for _, req := range sets {
		qs, err := questionService.CreateSet(ctx, req)
		if err != nil {
			fmt.Printf("Error creating Part %d set: %v\n", req.Part, err)
			continue
		}
		created += len(qs)
	}

	fmt.Printf("\nSeed completed! Added %d questions.\n", created)
}
