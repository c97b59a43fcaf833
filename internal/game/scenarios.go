package game

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
)

// FallbackScenarios keeps the game playable when no scenario file is
// configured or the configured one cannot be read.
var FallbackScenarios = []Scenario{
	{ID: "fb-01", Text: "How much do you enjoy singing karaoke in front of strangers?", Category: "social"},
	{ID: "fb-02", Text: "How likely are you to return a shopping cart in the rain?", Category: "habits"},
	{ID: "fb-03", Text: "How scary do you find spiders?", Category: "fears"},
	{ID: "fb-04", Text: "How good are you at keeping secrets?", Category: "social"},
	{ID: "fb-05", Text: "How much do you like pineapple on pizza?", Category: "food"},
	{ID: "fb-06", Text: "How organized is your sock drawer?", Category: "habits"},
	{ID: "fb-07", Text: "How likely are you to cry during a sad movie?", Category: "emotions"},
	{ID: "fb-08", Text: "How competitive do you get at board games?", Category: "games"},
	{ID: "fb-09", Text: "How well could you survive a week without your phone?", Category: "habits"},
	{ID: "fb-10", Text: "How much do you trust your own sense of direction?", Category: "skills"},
	{ID: "fb-11", Text: "How good of a dancer do you think you are?", Category: "skills"},
	{ID: "fb-12", Text: "How spicy do you like your food?", Category: "food"},
	{ID: "fb-13", Text: "How likely are you to talk to a stranger on a train?", Category: "social"},
	{ID: "fb-14", Text: "How tidy is your desk right now?", Category: "habits"},
	{ID: "fb-15", Text: "How much would you enjoy skydiving?", Category: "fears"},
	{ID: "fb-16", Text: "How good are you at remembering birthdays?", Category: "skills"},
}

// LoadScenarios reads a JSON array of scenarios from path. The caller
// decides whether to substitute FallbackScenarios on error or an empty
// pool.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}
	var scenarios []Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("parse scenarios: %w", err)
	}
	return scenarios, nil
}

// pickScenario selects uniformly at random from the scenarios not yet in
// used. When the pool is exhausted the full pool becomes eligible again,
// immediate repeats included. Returns false only for an empty pool.
func pickScenario(rng *rand.Rand, scenarios []Scenario, used map[string]struct{}) (Scenario, bool) {
	if len(scenarios) == 0 {
		return Scenario{}, false
	}
	available := make([]Scenario, 0, len(scenarios))
	for _, s := range scenarios {
		if _, ok := used[s.ID]; !ok {
			available = append(available, s)
		}
	}
	if len(available) == 0 {
		// pool exhausted: every scenario becomes eligible again
		for id := range used {
			delete(used, id)
		}
		return scenarios[rng.Intn(len(scenarios))], true
	}
	return available[rng.Intn(len(available))], true
}
