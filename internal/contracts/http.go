package contracts

// Wire-level request shapes for the endpoints whose bodies are not already an
// application input type.

type ReplyRequest struct {
	Reply string `json:"reply"`
}

type SetFeatureRequest struct {
	Enabled bool `json:"enabled"`
}
