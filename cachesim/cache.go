// Package cachesim replays memory trace files through a small word-addressed
// cache model and reports the hit rate.
package cachesim

import (
	"fmt"
	"io"
	"math/rand"
	"slices"
	"strconv"
	"strings"
)

// Policy selects the replacement policy of an associative cache.
type Policy int

// Replacement policies.
const (
	Random Policy = iota
	LRU
)

// Config holds cache geometry. Ways == 1 is a direct-mapped cache.
type Config struct {
	// BlockCount is the number of cache lines; a power of two.
	BlockCount int
	// BlockSize is the number of words per line; a power of two.
	BlockSize int
	Ways      int
	Policy    Policy
}

// Statistics holds cache access counters.
type Statistics struct {
	Loads    uint64
	Stores   uint64
	Accesses uint64
	Hits     uint64
}

// HitRate returns the hit percentage, or false when nothing was accessed.
func (s Statistics) HitRate() (float64, bool) {
	if s.Accesses == 0 {
		return 0, false
	}

	return 100 * float64(s.Hits) / float64(s.Accesses), true
}

const emptyWord = -1

// Cache is a word-addressed cache. A line holds the addresses of the words it
// caches; emptyWord marks an unfilled slot.
type Cache struct {
	config Config
	lines  [][]int
	stats  Statistics
	rng    *rand.Rand

	// recency lists line indices from least to most recently used.
	recency []int
}

// New creates a Cache. rng drives random replacement and may be nil for
// other policies.
func New(config Config, rng *rand.Rand) (*Cache, error) {
	if !isPow2(config.BlockCount) {
		return nil, fmt.Errorf("%w: block count %d is not a power of 2",
			ErrInvalidTrace, config.BlockCount)
	}

	if !isPow2(config.BlockSize) {
		return nil, fmt.Errorf("%w: block size %d is not a power of 2",
			ErrInvalidTrace, config.BlockSize)
	}

	if !isPow2(config.Ways) || config.Ways > config.BlockCount {
		return nil, fmt.Errorf("%w: %d-way cache needs a power-of-2 way "+
			"count no larger than the block count %d",
			ErrInvalidTrace, config.Ways, config.BlockCount)
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	lines := make([][]int, config.BlockCount)
	for i := range lines {
		lines[i] = make([]int, config.BlockSize)
		for j := range lines[i] {
			lines[i][j] = emptyWord
		}
	}

	return &Cache{config: config, lines: lines, rng: rng}, nil
}

// Stats returns the access counters.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// Load reads address and reports whether it hit.
func (c *Cache) Load(address int) bool {
	c.stats.Loads++

	return c.access(address)
}

// Store writes address and reports whether it hit. Stores allocate on miss.
func (c *Cache) Store(address int) bool {
	c.stats.Stores++

	return c.access(address)
}

// position returns the first line of the set address maps to, and the word
// offset within the line.
func (c *Cache) position(address int) (int, int) {
	block := (address / c.config.BlockSize) % c.config.BlockCount
	word := address % c.config.BlockSize

	return (block / c.config.Ways) * c.config.Ways, word
}

func (c *Cache) access(address int) bool {
	set, word := c.position(address)
	c.stats.Accesses++

	way := c.find(set, word, address)
	hit := way >= 0

	if hit {
		c.stats.Hits++
		c.touch(set + way)

		return true
	}

	c.fill(c.victim(set), address, word)

	return false
}

func (c *Cache) find(set, word, address int) int {
	for i := 0; i < c.config.Ways; i++ {
		if c.lines[set+i][word] == address {
			return i
		}
	}

	return -1
}

func (c *Cache) victim(set int) int {
	for i := 0; i < c.config.Ways; i++ {
		if c.lines[set+i][0] == emptyWord {
			return set + i
		}
	}

	if c.config.Policy == LRU {
		for _, line := range c.recency {
			if line >= set && line < set+c.config.Ways {
				return line
			}
		}
	}

	return set + c.rng.Intn(c.config.Ways)
}

func (c *Cache) fill(line, address, word int) {
	start := address - word
	for i := range c.lines[line] {
		c.lines[line][i] = start + i
	}

	c.touch(line)
}

func (c *Cache) touch(line int) {
	if c.config.Policy != LRU {
		return
	}

	if i := slices.Index(c.recency, line); i >= 0 {
		c.recency = slices.Delete(c.recency, i, i+1)
	}

	c.recency = append(c.recency, line)
}

// describe renders the verbose message for an access.
func (c *Cache) describe(kind string, address int, hit bool) string {
	block := (address / c.config.BlockSize) % c.config.BlockCount
	set, word := c.position(address)

	outcome := "miss"
	if hit {
		outcome = "hit"
	}

	if c.config.Ways == 1 {
		return fmt.Sprintf("A %s to address %d looked for word %d in block %d and was a %s.",
			kind, address, word, block, outcome)
	}

	return fmt.Sprintf("A %s to address %d looked for word %d in the set "+
		"starting with block %d and was a %s.", kind, address, word, set, outcome)
}

// WriteContents prints every line of the cache; empty slots show as "--".
func (c *Cache) WriteContents(w io.Writer) error {
	var sb strings.Builder

	sb.WriteString("\nCache Contents:\n")

	for _, line := range c.lines {
		sb.WriteString("[ ")

		for _, word := range line {
			if word == emptyWord {
				sb.WriteString("--")
			} else {
				sb.WriteString(strconv.Itoa(word))
			}

			sb.WriteByte(' ')
		}

		sb.WriteString("]\n")
	}

	_, err := io.WriteString(w, sb.String())

	return err
}

func isPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}
