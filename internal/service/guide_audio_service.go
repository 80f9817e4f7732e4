package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/examflow"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
)

var ErrUnknownGuideKey = errors.New("unknown guide audio key")

type guideCue struct {
	key         examflow.GuideKey
	label       string
	category    string
	description string
}

var guideCatalog = []guideCue{
	{examflow.GuidePreparationStart, "Preparation start", "common", `"Begin preparing now."`},
	{examflow.GuideSpeakingStart, "Speaking start", "common", `"Begin speaking now."`},
	{examflow.GuideSpeakingEnd, "Speaking end", "common", `"Time is up."`},
	{examflow.GuideNextQuestion, "Next question", "common", `"Moving on to the next question."`},
	{examflow.PartIntroKey(1), "Part 1 introduction", "parts", "Read a text aloud"},
	{examflow.PartIntroKey(2), "Part 2 introduction", "parts", "Describe a picture"},
	{examflow.PartIntroKey(3), "Part 3 introduction", "parts", "Respond to questions"},
	{examflow.PartIntroKey(4), "Part 4 introduction", "parts", "Respond to questions using information provided"},
	{examflow.PartIntroKey(5), "Part 5 introduction", "parts", "Express an opinion"},
}

func knownGuideKey(key string) bool {
	for _, c := range guideCatalog {
		if string(c.key) == key {
			return true
		}
	}
	return false
}

// ResolveGuideAudio merges stored overrides over the default track layout
// below base ("<base>/common/<key>.mp3" and "<base>/parts/<key>.mp3").
func ResolveGuideAudio(base string, overrides []model.GuideAudio) []model.GuideAudioEntry {
	byKey := make(map[string]string, len(overrides))
	for _, o := range overrides {
		if o.URL != "" {
			byKey[o.AudioKey] = o.URL
		}
	}

	entries := make([]model.GuideAudioEntry, 0, len(guideCatalog))
	for _, c := range guideCatalog {
		def := fmt.Sprintf("%s/%s/%s.mp3", base, c.category, c.key)
		e := model.GuideAudioEntry{
			AudioKey:    string(c.key),
			Label:       c.label,
			Category:    c.category,
			Description: c.description,
			URL:         def,
			DefaultURL:  def,
		}
		if url, ok := byKey[e.AudioKey]; ok {
			e.URL = url
			e.Overridden = true
		}
		entries = append(entries, e)
	}
	return entries
}

// GuideAudioService resolves the guide cues played during an exam.
type GuideAudioService struct {
	cfg   *config.Config
	repo  *repository.GuideAudioRepository
	media *MediaService
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewGuideAudioService creates a new GuideAudioService.
func NewGuideAudioService(cfg *config.Config, repo *repository.GuideAudioRepository, media *MediaService, rdb *redis.Client, log zerolog.Logger) *GuideAudioService {
	return &GuideAudioService{
		cfg:   cfg,
		repo:  repo,
		media: media,
		rdb:   rdb,
		log:   log.With().Str("component", "guide_audio_service").Logger(),
	}
}

// Entries returns every cue with its effective URL. The result is cached in
// Redis until an override changes.
func (s *GuideAudioService) Entries(ctx context.Context) ([]model.GuideAudioEntry, error) {
	key := config.CacheKey.GuideAudioKey()
	if raw, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var entries []model.GuideAudioEntry
		if json.Unmarshal(raw, &entries) == nil {
			return entries, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Guide audio cache unavailable")
	}

	overrides, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load guide audio overrides: %w", err)
	}
	entries := ResolveGuideAudio(s.cfg.GuideAudioBase, overrides)

	if data, err := json.Marshal(entries); err == nil {
		_ = s.rdb.Set(ctx, key, data, 0).Err()
	}
	return entries, nil
}

// GuideSet returns the cue map handed to an exam runner.
func (s *GuideAudioService) GuideSet(ctx context.Context) (examflow.GuideSet, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	set := make(examflow.GuideSet, len(entries))
	for _, e := range entries {
		set[examflow.GuideKey(e.AudioKey)] = e.URL
	}
	return set, nil
}

// Map returns the cue map keyed by audio key, for clients that preload audio.
func (s *GuideAudioService) Map(ctx context.Context) (map[string]string, error) {
	set, err := s.GuideSet(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(set))
	for k, v := range set {
		out[string(k)] = v
	}
	return out, nil
}

// SetOverride points a cue at url.
func (s *GuideAudioService) SetOverride(ctx context.Context, key, url string) error {
	if !knownGuideKey(key) {
		return ErrUnknownGuideKey
	}
	if err := s.repo.Upsert(ctx, key, url); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.Info().Str("audio_key", key).Str("url", url).Msg("Guide audio override saved")
	return nil
}

// UploadOverride stores an uploaded track and points the cue at it.
func (s *GuideAudioService) UploadOverride(ctx context.Context, key string, file multipart.File, header *multipart.FileHeader) (string, error) {
	if !knownGuideKey(key) {
		return "", ErrUnknownGuideKey
	}
	url, err := s.media.SaveUpload(ctx, MediaAudio, file, header)
	if err != nil {
		return "", err
	}
	if err := s.SetOverride(ctx, key, url); err != nil {
		return "", err
	}
	return url, nil
}

// ResetOverride restores the default track of a cue.
func (s *GuideAudioService) ResetOverride(ctx context.Context, key string) error {
	if !knownGuideKey(key) {
		return ErrUnknownGuideKey
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *GuideAudioService) invalidate(ctx context.Context) {
	if err := s.rdb.Del(ctx, config.CacheKey.GuideAudioKey()).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate guide audio cache")
	}
}
