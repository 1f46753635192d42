// Package lz finds LZ77 back-references over a 32 KiB window with
// per-prefix hash chains.
package lz

const (
	WindowSize = 32768
	MinMatch   = 3
	MaxMatch   = 258
)

type TokenKind uint8

const (
	LiteralToken TokenKind = iota
	MatchToken
)

func (k TokenKind) String() string {
	switch k {
	case LiteralToken:
		return "literal"
	case MatchToken:
		return "match"
	}
	return "unknown"
}

// Token is either a literal byte or a (Length, Distance) back-reference.
type Token struct {
	Kind     TokenKind
	Literal  byte
	Length   int
	Distance int
}

func Literal(b byte) Token {
	return Token{Kind: LiteralToken, Literal: b}
}

func Match(length, distance int) Token {
	return Token{Kind: MatchToken, Length: length, Distance: distance}
}

// Matcher keeps, for every 3 byte prefix, the positions it starts at in
// ascending order. Positions that fall out of the window are dropped as the
// cursor moves past them.
type Matcher struct {
	content []byte
	chains  map[uint32][]int
}

func NewMatcher(content []byte) *Matcher {
	return &Matcher{
		content: content,
		chains:  make(map[uint32][]int),
	}
}

func (m *Matcher) prefix(pos int) uint32 {
	c := m.content
	return uint32(c[pos])<<16 | uint32(c[pos+1])<<8 | uint32(c[pos+2])
}

// Insert makes pos a candidate for later searches. Positions must be
// inserted in increasing order.
func (m *Matcher) Insert(pos int) {
	if pos < 0 || pos+MinMatch > len(m.content) {
		return
	}
	key := m.prefix(pos)
	m.chains[key] = append(m.chains[key], pos)
}

// FindMatch returns the longest match for content[i:] among inserted
// positions j with i-j <= WindowSize. Equal lengths resolve to the smaller
// distance. (0, 0) means no match of at least MinMatch bytes.
func (m *Matcher) FindMatch(i int) (length, distance int) {
	if i < 0 || i+MinMatch > len(m.content) {
		return 0, 0
	}
	key := m.prefix(i)
	chain := m.evict(key, i)
	limit := min(MaxMatch, len(m.content)-i)
	for k := len(chain) - 1; k >= 0; k-- {
		j := chain[k]
		if j >= i {
			continue
		}
		l := MinMatch
		for l < limit && m.content[j+l] == m.content[i+l] {
			l++
		}
		if l > length {
			length, distance = l, i-j
			if length == limit {
				break
			}
		}
	}
	return length, distance
}

func (m *Matcher) evict(key uint32, i int) []int {
	chain := m.chains[key]
	drop := 0
	for drop < len(chain) && i-chain[drop] > WindowSize {
		drop++
	}
	if drop == 0 {
		return chain
	}
	if drop == len(chain) {
		delete(m.chains, key)
		return nil
	}
	chain = chain[drop:]
	m.chains[key] = chain
	return chain
}

// Tokenize greedily parses content into literals and back-references.
func Tokenize(content []byte) []Token {
	m := NewMatcher(content)
	tokens := make([]Token, 0, len(content)/2+1)
	for i := 0; i < len(content); {
		length, distance := m.FindMatch(i)
		if length < MinMatch {
			tokens = append(tokens, Literal(content[i]))
			m.Insert(i)
			i++
			continue
		}
		tokens = append(tokens, Match(length, distance))
		for end := i + length; i < end; i++ {
			m.Insert(i)
		}
	}
	return tokens
}

// Expand replays tokens into the bytes they describe.
func Expand(tokens []Token) []byte {
	var out []byte
	for _, t := range tokens {
		switch t.Kind {
		case LiteralToken:
			out = append(out, t.Literal)
		case MatchToken:
			from := len(out) - t.Distance
			for k := 0; k < t.Length; k++ {
				out = append(out, out[from+k])
			}
		}
	}
	return out
}
