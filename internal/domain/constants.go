package domain

import "time"

// Default configuration values
const (
	// DefaultHorizonYears системный горизонт расширения recurrence-правил
	DefaultHorizonYears = 2

	// DefaultWaitlistTTL время жизни записи в листе ожидания
	DefaultWaitlistTTL = 72 * time.Hour

	// DefaultProposalTTL дедлайн ответа на предложение о переназначении
	DefaultProposalTTL = 24 * time.Hour

	// DefaultWaitlistCap лимит листа ожидания на ресурс (0 = без лимита)
	DefaultWaitlistCap = 0
)

// Business validation constants
const (
	MaxCandidateResources = 20
	MaxReasonLength       = 500
	MaxOccurrencesPerRule = 1000
)

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)
