package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateSessionKey returns the cache key holding a candidate's active login JTI
func (r *CacheKeyStruct) CandidateSessionKey(candidateID int) string {
	return fmt.Sprintf("login:candidate:%d", candidateID)
}

// AttemptQuestionsKey returns the cache key for an attempt's frozen question list
func (r *CacheKeyStruct) AttemptQuestionsKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:questions", attemptID)
}

// AttemptLockKey returns the key guarding the single live runner of an attempt
func (r *CacheKeyStruct) AttemptLockKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:live", attemptID)
}

// LiveAttemptsKey returns the hash of attempts currently running, keyed by attempt ID
func (r *CacheKeyStruct) LiveAttemptsKey() string {
	return "attempts:live"
}

// GuideAudioKey returns the cache key for the resolved guide audio map
func (r *CacheKeyStruct) GuideAudioKey() string {
	return "guide_audio:resolved"
}

// LoginAttemptsKey returns the counter of failed admin logins for an email
func (r *CacheKeyStruct) LoginAttemptsKey(email string) string {
	return fmt.Sprintf("login:admin:failed:%s", email)
}

// ExamMonitorChannel returns the Redis PubSub channel carrying live exam events
func (r *CacheKeyStruct) ExamMonitorChannel() string {
	return "exam:monitor"
}

var CacheKey = NewCacheKeyStruct()
