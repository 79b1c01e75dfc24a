// Package chattypes defines the core data structures shared by the calmchat
// conversational response coordinator.
//
// The coordinator sends a user's message to one of several interchangeable AI
// backends, fails over between them in registry order, remembers which backend
// last answered, and derives short quick-reply suggestions from each exchange.
//
// # Package Organization
//
//   - provider_types.go: ProviderProfile, ProtocolKind and the embedded catalog file shape
//   - session_types.go: ConversationTurn, Role, UserProfile
//   - response_types.go: ResponseResult, ChatReply, QuickReplySet
//   - error_types.go: sentinel errors and FailoverError
//   - core_interfaces.go: the Service lifecycle contract
//
// Types in this package carry no behaviour beyond validation helpers; the
// services under internal/services operate on them.
package chattypes
