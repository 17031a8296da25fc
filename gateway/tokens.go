package gateway

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return
		}
		enc = e
	})
	return enc
}

// CountTokens returns the token count of text. Falls back to a rough
// bytes/4 estimate if the encoding tables are unavailable.
func CountTokens(text string) int {
	e := encoding()
	if e == nil {
		return len(text) / 4
	}
	return len(e.Encode(text, nil, nil))
}

// TrimToTokenBudget truncates text to at most budget tokens. Used to keep
// fetched web context from crowding out the rest of the prompt.
func TrimToTokenBudget(text string, budget int) string {
	if budget <= 0 || text == "" {
		return ""
	}
	e := encoding()
	if e == nil {
		limit := budget * 4
		if len(text) <= limit {
			return text
		}
		return text[:limit]
	}
	ids := e.Encode(text, nil, nil)
	if len(ids) <= budget {
		return text
	}
	return e.Decode(ids[:budget])
}
