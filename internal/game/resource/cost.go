package resource

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Type is a kind of resource produced by a resource stack.
type Type string

const (
	Persuasion Type = "persuasion"
	Logistics  Type = "logistics"
	Security   Type = "security"
)

var symbols = map[string]Type{
	"P": Persuasion,
	"L": Logistics,
	"S": Security,
}

// Symbol returns the single-letter cost notation for the type.
func (t Type) Symbol() string {
	for sym, typ := range symbols {
		if typ == t {
			return sym
		}
	}
	return "?"
}

// Valid reports whether t is one of the known resource types.
func (t Type) Valid() bool {
	switch t {
	case Persuasion, Logistics, Security:
		return true
	}
	return false
}

// ParseType parses a resource type name or symbol ("logistics", "L").
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if t, ok := symbols[strings.ToUpper(s)]; ok {
		return t, nil
	}
	t := Type(strings.ToLower(s))
	if !t.Valid() {
		return "", fmt.Errorf("unknown resource type: %q", s)
	}
	return t, nil
}

// Cost maps a resource type to the quantity required.
type Cost map[Type]int

var costPattern = regexp.MustCompile(`\{([^}]+)\}`)

// ParseCost parses a cost string such as "{2P}{1L}" or "{P}{P}{S}".
// Each symbol is an optional count followed by a resource letter.
func ParseCost(costStr string) (Cost, error) {
	cost := Cost{}
	costStr = strings.TrimSpace(costStr)
	if costStr == "" {
		return cost, nil
	}

	matches := costPattern.FindAllStringSubmatchIndex(costStr, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("malformed cost: %q", costStr)
	}

	end := 0
	for _, match := range matches {
		if strings.TrimSpace(costStr[end:match[0]]) != "" {
			return nil, fmt.Errorf("malformed cost: %q", costStr)
		}
		end = match[1]
		symbol := strings.ToUpper(strings.TrimSpace(costStr[match[2]:match[3]]))
		if symbol == "" {
			return nil, fmt.Errorf("empty cost symbol in %q", costStr)
		}
		letter := symbol[len(symbol)-1:]
		typ, ok := symbols[letter]
		if !ok {
			return nil, fmt.Errorf("unknown resource symbol: {%s}", symbol)
		}
		count := 1
		if digits := symbol[:len(symbol)-1]; digits != "" {
			n, err := strconv.Atoi(digits)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid resource count: {%s}", symbol)
			}
			count = n
		}
		cost[typ] += count
	}
	if strings.TrimSpace(costStr[end:]) != "" {
		return nil, fmt.Errorf("malformed cost: %q", costStr)
	}

	return cost, nil
}

// Types returns the resource types with a positive requirement, sorted by name.
func (c Cost) Types() []Type {
	types := make([]Type, 0, len(c))
	for t, n := range c {
		if n > 0 {
			types = append(types, t)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Total returns the sum of all requirements.
func (c Cost) Total() int {
	total := 0
	for _, n := range c {
		if n > 0 {
			total += n
		}
	}
	return total
}

// IsFree reports whether nothing needs to be paid.
func (c Cost) IsFree() bool {
	return c.Total() == 0
}

// OnlyType reports whether every requirement in the cost is of type t.
func (c Cost) OnlyType(t Type) bool {
	for _, typ := range c.Types() {
		if typ != t {
			return false
		}
	}
	return true
}

// String returns the cost in "{2P}{1L}" notation.
func (c Cost) String() string {
	var b strings.Builder
	for _, t := range c.Types() {
		fmt.Fprintf(&b, "{%d%s}", c[t], t.Symbol())
	}
	return b.String()
}
