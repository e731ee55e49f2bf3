package cart

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidProduct  = errors.New("product must have an id, a name and a non-negative price")
)

// ProductSnapshot is copied from the catalog when a line is first added.
// Later catalog edits never reach lines already in a cart.
type ProductSnapshot struct {
	ID              int64           `json:"id"`
	RestaurantID    int64           `json:"restaurantId"`
	Name            string          `json:"name"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	ImageURL        string          `json:"imageUrl,omitempty"`
	BaseIngredients []Ingredient    `json:"baseIngredients,omitempty"`
}

func (p ProductSnapshot) validate() error {
	if p.ID == 0 || strings.TrimSpace(p.Name) == "" || p.UnitPrice.IsNegative() {
		return ErrInvalidProduct
	}
	return nil
}

type Line struct {
	Key         ConfigurationKey `json:"configurationKey"`
	Product     ProductSnapshot  `json:"product"`
	Quantity    int              `json:"quantity"`
	Ingredients []Ingredient     `json:"selectedIngredients"`
}

// Removed returns base ingredients the customer took out.
func (l Line) Removed() []string {
	return RemovedIngredients(l.Product.BaseIngredients, l.Ingredients)
}

func (l Line) clone() Line {
	out := l
	out.Ingredients = append([]Ingredient(nil), l.Ingredients...)
	out.Product.BaseIngredients = append([]Ingredient(nil), l.Product.BaseIngredients...)
	return out
}

// Cart holds at most one line per ConfigurationKey, in insertion order.
// It is not safe for concurrent use; callers serialize access per session.
type Cart struct {
	lines []Line
	index map[ConfigurationKey]int
}

func New() *Cart {
	return &Cart{index: make(map[ConfigurationKey]int)}
}

// Add merges into an existing line with the same key, otherwise appends.
// A merged line keeps the snapshot taken on its first add.
func (c *Cart) Add(product ProductSnapshot, quantity int, ingredients []Ingredient) (Line, error) {
	if quantity < 1 {
		return Line{}, ErrInvalidQuantity
	}
	if err := product.validate(); err != nil {
		return Line{}, err
	}
	c.ensureIndex()
	selected := NormalizeIngredients(ingredients)
	key := Key(product.ID, selected)
	if i, ok := c.index[key]; ok {
		c.lines[i].Quantity += quantity
		return c.lines[i].clone(), nil
	}
	line := Line{
		Key:         key,
		Product:     product,
		Quantity:    quantity,
		Ingredients: selected,
	}
	line = line.clone()
	c.index[key] = len(c.lines)
	c.lines = append(c.lines, line)
	return line.clone(), nil
}

// UpdateQuantity overwrites a line's quantity. n <= 0 removes the line.
// Unknown keys are ignored. Reports whether the cart changed.
func (c *Cart) UpdateQuantity(key ConfigurationKey, n int) bool {
	if n <= 0 {
		return c.Remove(key)
	}
	c.ensureIndex()
	i, ok := c.index[key]
	if !ok || c.lines[i].Quantity == n {
		return false
	}
	c.lines[i].Quantity = n
	return true
}

// Remove deletes the line if present. Reports whether the cart changed.
func (c *Cart) Remove(key ConfigurationKey) bool {
	c.ensureIndex()
	i, ok := c.index[key]
	if !ok {
		return false
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	c.reindex()
	return true
}

func (c *Cart) Clear() {
	c.lines = nil
	c.index = make(map[ConfigurationKey]int)
}

func (c *Cart) Get(key ConfigurationKey) (Line, bool) {
	c.ensureIndex()
	i, ok := c.index[key]
	if !ok {
		return Line{}, false
	}
	return c.lines[i].clone(), true
}

// Lines returns a deep copy in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, l.clone())
	}
	return out
}

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// ItemCount is the sum of quantities, shown on the cart badge.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Clone() *Cart {
	out := New()
	for _, l := range c.lines {
		out.index[l.Key] = len(out.lines)
		out.lines = append(out.lines, l.clone())
	}
	return out
}

func (c *Cart) ensureIndex() {
	if c.index == nil {
		c.reindex()
	}
}

func (c *Cart) reindex() {
	c.index = make(map[ConfigurationKey]int, len(c.lines))
	for i, l := range c.lines {
		c.index[l.Key] = i
	}
}

type cartJSON struct {
	Lines []Line `json:"lines"`
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	lines := c.lines
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(cartJSON{Lines: lines})
}

// UnmarshalJSON rebuilds the cart through the same rules as Add, so stored
// payloads can never violate the one-line-per-key invariant.
func (c *Cart) UnmarshalJSON(raw []byte) error {
	var in cartJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return err
	}
	c.Clear()
	for _, l := range in.Lines {
		if l.Quantity < 1 {
			continue
		}
		if _, err := c.Add(l.Product, l.Quantity, l.Ingredients); err != nil {
			return err
		}
	}
	return nil
}
