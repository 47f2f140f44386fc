package chunker

import (
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Unit names accepted by MeasureFor.
const (
	UnitCharacters = "characters"
	UnitTokens     = "tokens"
)

// DefaultEncoding is the tiktoken encoding used for the token unit.
const DefaultEncoding = "cl100k_base"

// Measure sizes text in one unit. Chunk size and overlap are expressed in the
// same unit for a whole pipeline instance.
type Measure interface {
	// Unit returns the unit name.
	Unit() string

	// Len returns the size of s.
	Len(s string) int

	// Cut splits s into windows of at most size units, each starting
	// size-overlap units after the previous one.
	Cut(s string, size, overlap int) []string
}

// MeasureFor returns the measure for a configured unit name.
func MeasureFor(unit, encoding string) (Measure, error) {
	switch unit {
	case "", UnitCharacters:
		return Characters(), nil
	case UnitTokens:
		return Tokens(encoding)
	default:
		return nil, fmt.Errorf("unknown chunk unit %q", unit)
	}
}

type characters struct{}

// Characters measures text in Unicode code points.
func Characters() Measure {
	return characters{}
}

func (characters) Unit() string { return UnitCharacters }

func (characters) Len(s string) int { return utf8.RuneCountInString(s) }

func (characters) Cut(s string, size, overlap int) []string {
	runes := []rune(s)
	return cutWindows(len(runes), size, overlap, func(start, end int) string {
		return string(runes[start:end])
	})
}

// tokenEncoder is the subset of *tiktoken.Tiktoken the token measure needs.
type tokenEncoder interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
	Decode(tokens []int) string
}

type tokens struct {
	enc tokenEncoder
}

// Tokens measures text in tiktoken tokens of the named encoding.
func Tokens(encoding string) (Measure, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %s (set chunking.bpe_dir on offline hosts): %w", encoding, err)
	}
	return tokens{enc: enc}, nil
}

// UseBPEDir makes token measures read BPE rank files from dir instead of
// downloading them. Files keep their published names, such as
// cl100k_base.tiktoken. It must be called before the first Tokens call for an
// encoding: loaded encodings are cached for the life of the process.
func UseBPEDir(dir string) {
	tiktoken.SetBpeLoader(dirLoader{dir: dir})
}

type dirLoader struct {
	dir string
}

func (l dirLoader) LoadTiktokenBpe(url string) (map[string]int, error) {
	file := filepath.Join(l.dir, path.Base(url))
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read BPE file: %w", err)
	}
	return parseBPE(data)
}

// parseBPE reads "base64-token rank" lines.
func parseBPE(data []byte) (map[string]int, error) {
	ranks := make(map[string]int)
	for i, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("BPE line %d: want token and rank", i+1)
		}
		token, err := base64.StdEncoding.DecodeString(fields[0])
		if err != nil {
			return nil, fmt.Errorf("BPE line %d: %w", i+1, err)
		}
		rank, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("BPE line %d: %w", i+1, err)
		}
		ranks[string(token)] = rank
	}
	return ranks, nil
}

func (tokens) Unit() string { return UnitTokens }

func (t tokens) Len(s string) int {
	return len(t.enc.Encode(s, nil, nil))
}

func (t tokens) Cut(s string, size, overlap int) []string {
	toks := t.enc.Encode(s, nil, nil)
	return cutWindows(len(toks), size, overlap, func(start, end int) string {
		return strings.ToValidUTF8(t.enc.Decode(toks[start:end]), "")
	})
}

// cutWindows is the hard-cut fallback: fixed windows advancing by
// size-overlap while the window start lies inside the text.
func cutWindows(n, size, overlap int, slice func(start, end int) string) []string {
	step := size - overlap
	if step <= 0 {
		step = size
	}
	out := make([]string, 0, n/step+1)
	for start := 0; start < n; start += step {
		end := min(start+size, n)
		out = append(out, slice(start, end))
	}
	return out
}
