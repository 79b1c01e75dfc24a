package services

import (
	"fmt"
	"strings"

	"calmchat/pkg/chattypes"
)

const defaultUserName = "friend"

// InstructionService builds the system instructions for the wellness
// assistant from the user's profile. The coordinator treats its output as
// an opaque string.
type InstructionService struct {
	initialized bool
}

// NewInstructionService creates a new InstructionService instance.
func NewInstructionService() *InstructionService {
	return &InstructionService{
		initialized: false,
	}
}

// Name returns the service name "instruction" for registration.
func (s *InstructionService) Name() string {
	return "instruction"
}

// Initialize sets up the InstructionService for operation.
func (s *InstructionService) Initialize() error {
	s.initialized = true
	return nil
}

// Build returns the system instructions for profile. Empty optional
// fields are left out.
func (s *InstructionService) Build(profile chattypes.UserProfile) string {
	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = defaultUserName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a warm, supportive mental wellness companion talking with %s.\n", name)
	b.WriteString("Listen carefully, reflect feelings back, ask gentle open questions and suggest small, practical steps. ")
	b.WriteString("Keep replies concise and conversational. You are not a replacement for professional care; ")
	b.WriteString("if the user mentions self-harm or crisis, encourage them to contact local emergency services or a crisis line.\n")

	if occupation := strings.TrimSpace(profile.Occupation); occupation != "" {
		fmt.Fprintf(&b, "%s works as: %s.\n", name, occupation)
	}
	if habits := strings.TrimSpace(profile.Habits); habits != "" {
		fmt.Fprintf(&b, "Habits %s is working on: %s.\n", name, habits)
	}
	if hobbies := strings.TrimSpace(profile.Hobbies); hobbies != "" {
		fmt.Fprintf(&b, "%s enjoys: %s.\n", name, hobbies)
	}

	return b.String()
}
