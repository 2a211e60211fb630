package ports

import "github.com/layer-3/carbx/core"

// Tokenizer reads session tokens issued by the backend
type Tokenizer interface {
	// Inspect decodes a token without verifying its signature
	Inspect(token string) (*core.SessionToken, error)
}
