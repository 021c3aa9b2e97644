package main

import (
	"crypto/rand"
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed prompts/prompts.json
var promptData []byte

type promptPools struct {
	Truths []string `json:"truths"`
	Dares  []string `json:"dares"`
}

// PromptSet is the memory-resident prompt database: per tone, one pool of
// truths and one of dares. Lookups never touch the network or disk, so a
// draw is safe to run inline on the dispatcher goroutine.
type PromptSet struct {
	pools map[Tone]promptPools
}

func loadPrompts() (*PromptSet, error) {
	pools := make(map[Tone]promptPools)
	if err := json.Unmarshal(promptData, &pools); err != nil {
		return nil, fmt.Errorf("parsing embedded prompts: %w", err)
	}

	for _, tone := range []Tone{ToneChill, ToneSpicy, ToneExtreme} {
		pool, ok := pools[tone]
		if !ok || len(pool.Truths) == 0 || len(pool.Dares) == 0 {
			return nil, fmt.Errorf("prompt pool for tone %s is missing or empty", tone)
		}
	}

	return &PromptSet{pools: pools}, nil
}

// pick draws a random prompt for the tone and category, excluding any
// prompt already served to the room. Returns false when the pool is
// exhausted.
func (ps *PromptSet) pick(tone Tone, choice Choice, used map[string]bool) (string, bool) {
	pool, ok := ps.pools[tone]
	if !ok {
		return "", false
	}

	source := pool.Truths
	if choice == ChoiceDare {
		source = pool.Dares
	}

	unused := make([]string, 0, len(source))
	for _, prompt := range source {
		if !used[prompt] {
			unused = append(unused, prompt)
		}
	}

	if len(unused) == 0 {
		return "", false
	}

	return unused[randIndex(len(unused))], true
}

// randIndex returns a uniform index in [0, n) using crypto/rand with
// rejection sampling.
func randIndex(n int) int {
	if n <= 1 {
		return 0
	}

	max := byte(255 - (256 % n))
	buf := make([]byte, 1)

	for {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		if buf[0] <= max {
			return int(buf[0]) % n
		}
	}
}
