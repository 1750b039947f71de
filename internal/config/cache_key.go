package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TraineeSessionKey returns the cache key for a trainee's login session
func (r *CacheKeyStruct) TraineeSessionKey(traineeID int) string {
	return fmt.Sprintf("login:%d", traineeID)
}

// CertSessionStartKey returns the cache key for a certification session's start time
func (r *CacheKeyStruct) CertSessionStartKey(moduleID string, traineeID int) string {
	return fmt.Sprintf("trainee:%d:module:%s:cert_start", traineeID, moduleID)
}

// AudioCacheKey returns the cache key for synthesized question audio.
// textHash is the hex SHA-256 of the exact question text.
func (r *CacheKeyStruct) AudioCacheKey(textHash string) string {
	return fmt.Sprintf("tts:audio:%s", textHash)
}

// QuestionCacheKey returns the cache key for a generated question. Identical
// (module, question number, prior response count) states reuse the same entry.
func (r *CacheKeyStruct) QuestionCacheKey(moduleID string, questionNumber, priorResponses int) string {
	return fmt.Sprintf("module:%s:q:%d:prior:%d", moduleID, questionNumber, priorResponses)
}

// CertMonitorChannel returns the Redis PubSub channel name for live
// certification progress events of a module
func (r *CacheKeyStruct) CertMonitorChannel(moduleID string) string {
	return fmt.Sprintf("module:%s:cert_monitor", moduleID)
}

var CacheKey = NewCacheKeyStruct()
