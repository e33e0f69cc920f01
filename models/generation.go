package models

// GenerationStatus is the backend-reported state of a generation request.
type GenerationStatus string

const (
	GenerationPending   GenerationStatus = "pending"
	GenerationCompleted GenerationStatus = "completed"
	GenerationFailed    GenerationStatus = "failed"
	GenerationCancelled GenerationStatus = "cancelled"
)
