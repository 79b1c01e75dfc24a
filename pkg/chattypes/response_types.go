package chattypes

// ResponseResult is the outcome of a successful failover run.
type ResponseResult struct {
	Text                string // Reply text from the backend
	ProviderKey         string // Registry key of the provider that answered
	ProviderDisplayName string // May differ from the provider selected when the call started
	ProviderIndex       int    // Registry position of the provider that answered
}

// ChatReply is the caller-facing shape of a reply: the text and the
// human-readable name of the server that produced it.
type ChatReply struct {
	Text   string `json:"text"`
	Server string `json:"server"`
}

// MaxQuickReplies bounds the number of suggestions returned to the caller.
const MaxQuickReplies = 5

// QuickReplySet is an ordered list of at most MaxQuickReplies short,
// non-empty continuation phrases.
type QuickReplySet []string
