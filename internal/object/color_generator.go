package object

import (
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

const goldenRatio = 0.618033988749895

// ColorGenerator: bright, well separated colors for shapes the model left uncolored
type ColorGenerator struct {
	counter int
	mu      sync.Mutex
}

func NewColorGenerator() *ColorGenerator {
	return &ColorGenerator{}
}

// NextColor: next hue of the golden ratio sequence as #rrggbb
func (cg *ColorGenerator) NextColor() string {
	cg.mu.Lock()
	defer cg.mu.Unlock()

	hue := float64(cg.counter) * goldenRatio
	hue -= float64(int(hue))
	cg.counter++

	return colorful.Hsl(hue*360, 0.85, 0.55).Hex()
}

// NormalizeColor parses #rgb / #rrggbb (the leading # is optional) into lowercase #rrggbb
func NormalizeColor(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return "", false
	}
	return c.Hex(), true
}
