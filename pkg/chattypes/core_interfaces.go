package chattypes

// Service is the lifecycle contract implemented by every calmchat service.
// Services are registered by name and initialized once before use.
type Service interface {
	// Name returns the unique registration name of the service.
	Name() string

	// Initialize prepares the service for operation.
	Initialize() error
}
