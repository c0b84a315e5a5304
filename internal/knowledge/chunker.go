package knowledge

import "strings"

const (
	DefaultChunkWords   = 500
	DefaultOverlapWords = 50
)

// Chunk splits text into windows of size words, each starting size-overlap
// words after the previous one.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkWords
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := size - overlap
	var out []string
	for i := 0; i < len(words); i += step {
		end := min(i+size, len(words))
		out = append(out, strings.Join(words[i:end], " "))
	}
	return out
}
