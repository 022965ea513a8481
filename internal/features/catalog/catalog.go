package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sync/atomic"

	"lara-bot/internal/common/logger"
)

// Probability is one row of a box's reward table.
type Probability struct {
	Prob  float64 `json:"prob"`
	Point int     `json:"point"`
}

// Box is a catalog-defined reward converting keys into points.
type Box struct {
	Type          string        `json:"-"`
	Name          string        `json:"name"`
	Emoji         string        `json:"emoji"`
	Image         string        `json:"image"`
	Key           int           `json:"key"`
	KeyPremium    *int          `json:"key_premium,omitempty"`
	Probabilities []Probability `json:"probabilities"`
}

// KeyCost is the number of keys the box consumes at the given tier.
func (b Box) KeyCost(premium bool) int {
	if premium && b.KeyPremium != nil {
		return *b.KeyPremium
	}
	return b.Key
}

func (b Box) MaxPoint() int {
	max := 0
	for _, p := range b.Probabilities {
		if p.Point > max {
			max = p.Point
		}
	}
	return max
}

// Catalog is an immutable, ordered set of boxes.
type Catalog struct {
	boxes  []Box
	byType map[string]int
}

// Parse reads a JSON object of box type to definition. Declaration order is
// kept so prompts list boxes the way the file does.
func Parse(r io.Reader) (*Catalog, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("catalog must be a JSON object")
	}

	c := &Catalog{byType: make(map[string]int)}
	emojis := make(map[string]string)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read catalog key: %w", err)
		}
		boxType, _ := tok.(string)

		var box Box
		if err := dec.Decode(&box); err != nil {
			return nil, fmt.Errorf("decode box %q: %w", boxType, err)
		}
		box.Type = boxType

		if err := validate(box); err != nil {
			return nil, err
		}
		if _, dup := c.byType[boxType]; dup {
			return nil, fmt.Errorf("duplicate box type %q", boxType)
		}
		if other, dup := emojis[box.Emoji]; dup {
			return nil, fmt.Errorf("boxes %q and %q share emoji %s", other, boxType, box.Emoji)
		}
		emojis[box.Emoji] = boxType
		c.byType[boxType] = len(c.boxes)
		c.boxes = append(c.boxes, box)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read catalog end: %w", err)
	}
	if len(c.boxes) == 0 {
		return nil, fmt.Errorf("catalog declares no boxes")
	}
	return c, nil
}

func validate(b Box) error {
	switch {
	case b.Type == "":
		return fmt.Errorf("box with empty type")
	case b.Emoji == "":
		return fmt.Errorf("box %q has no emoji", b.Type)
	case b.Key <= 0:
		return fmt.Errorf("box %q needs a positive key cost", b.Type)
	case b.KeyPremium != nil && *b.KeyPremium <= 0:
		return fmt.Errorf("box %q needs a positive premium key cost", b.Type)
	case len(b.Probabilities) == 0:
		return fmt.Errorf("box %q has an empty probability table", b.Type)
	}

	// Odds are only displayed, so a bad sum is logged rather than rejected.
	sum := 0.0
	for _, p := range b.Probabilities {
		sum += p.Prob
	}
	if math.Abs(sum-1) > 1e-6 {
		logger.Warn().Str("box", b.Type).Float64("sum", sum).Msg("box probabilities do not sum to 1")
	}
	return nil
}

// LoadFile parses the catalog at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Has reports whether boxType is one of the declared keys.
func (c *Catalog) Has(boxType string) bool {
	_, ok := c.byType[boxType]
	return ok
}

func (c *Catalog) Get(boxType string) (Box, bool) {
	i, ok := c.byType[boxType]
	if !ok {
		return Box{}, false
	}
	return c.boxes[i], true
}

// ByEmoji resolves a selection reaction to its box.
func (c *Catalog) ByEmoji(emoji string) (Box, bool) {
	for _, b := range c.boxes {
		if b.Emoji == emoji {
			return b, true
		}
	}
	return Box{}, false
}

// Boxes returns the boxes in declaration order.
func (c *Catalog) Boxes() []Box {
	out := make([]Box, len(c.boxes))
	copy(out, c.boxes)
	return out
}

// Emojis returns the selection emoji of every box in declaration order.
func (c *Catalog) Emojis() []string {
	out := make([]string, 0, len(c.boxes))
	for _, b := range c.boxes {
		out = append(out, b.Emoji)
	}
	return out
}

// Store holds the current catalog snapshot. Readers take a snapshot once per
// command and never see a partially reloaded catalog.
type Store struct {
	path    string
	current atomic.Pointer[Catalog]
}

func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticStore wraps an already parsed catalog; Reload on it is a no-op.
func NewStaticStore(c *Catalog) *Store {
	s := &Store{}
	s.current.Store(c)
	return s
}

func (s *Store) Current() *Catalog {
	return s.current.Load()
}

// Reload re-reads the catalog file. On error the previous snapshot stays.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	c, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	s.current.Store(c)
	logger.Info().Str("path", s.path).Int("boxes", len(c.boxes)).Msg("box catalog loaded")
	return nil
}
