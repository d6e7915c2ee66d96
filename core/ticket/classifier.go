package ticket

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/emisoft/buzon/core"
)

// Default keyword sets. Deliberately a crude substring heuristic: a match
// anywhere inside subject or description trips the rule, mid-word included.
// False positives are accepted as the cost of simplicity.
var (
	defaultCriticalTerms = []string{
		"robo", "fuego", "incendio", "acoso", "golpe", "sangre", "amenaza", "urgente",
	}
	defaultSpamTerms = []string{
		"gratis", "premio", "loteria", "lotería", "casino", "compra ya",
		"oferta limitada", "gana dinero", "haz click", "http://", "https://bit.ly",
	}
)

// MatchResult reports which keyword sets a submission tripped.
type MatchResult struct {
	Critical bool
	Spam     bool
}

// Classifier scans free-text fields against two named keyword sets. The sets
// can be reloaded at runtime from a config file so that false-positive
// tuning does not need a redeploy.
type Classifier struct {
	mu       sync.RWMutex
	critical []string
	spam     []string

	v      *viper.Viper
	logger core.Logger
}

func NewClassifier(logger core.Logger) *Classifier {
	return &Classifier{
		critical: normalizeTerms(defaultCriticalTerms),
		spam:     normalizeTerms(defaultSpamTerms),
		logger:   logger,
	}
}

// WatchFile loads both keyword sets from a yaml/toml/json file (keys:
// "criticas", "spam") and keeps reloading on change.
func (c *Classifier) WatchFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	c.v = v
	c.reload()

	v.OnConfigChange(func(fsnotify.Event) {
		c.reload()
		c.logger.Info(fmt.Sprintf("classifier keyword sets reloaded from %s", path))
	})
	v.WatchConfig()
	return nil
}

func (c *Classifier) reload() {
	critical := c.v.GetStringSlice("criticas")
	spam := c.v.GetStringSlice("spam")

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(critical) > 0 {
		c.critical = normalizeTerms(critical)
	}
	if len(spam) > 0 {
		c.spam = normalizeTerms(spam)
	}
}

// Classify case-folds subject+description and reports a match per set.
func (c *Classifier) Classify(subject, description string) MatchResult {
	text := strings.ToLower(subject + " " + description)

	c.mu.RLock()
	defer c.mu.RUnlock()
	return MatchResult{
		Critical: containsAny(text, c.critical),
		Spam:     containsAny(text, c.spam),
	}
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if term = core.CleanString(term, true /* lower */); term != "" {
			out = append(out, term)
		}
	}
	return out
}
