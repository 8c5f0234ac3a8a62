package ingest

import (
	"regexp"
	"strings"
)

// Chunker splits source text into passage-sized chunks with sentence
// boundary awareness. Paragraphs are packed until the size cap, and each
// new chunk starts with overlap from the previous one so no fact is cut
// in half at a boundary.
type Chunker struct {
	maxChunkSize   int
	overlap        int
	minChunkSize   int
	sentenceRegex  *regexp.Regexp
	paragraphRegex *regexp.Regexp
}

func NewChunker(maxChunkSize, overlap, minChunkSize int) *Chunker {
	return &Chunker{
		maxChunkSize:   maxChunkSize,
		overlap:        overlap,
		minChunkSize:   minChunkSize,
		sentenceRegex:  regexp.MustCompile(`[.!?]+[\s]+`),
		paragraphRegex: regexp.MustCompile(`\n\n+`),
	}
}

// Chunk is one passage produced from a source document.
type Chunk struct {
	Text      string
	Order     int
	CharCount int
	WordCount int
	Keywords  []string
}

// ChunkText splits text into chunks along paragraph boundaries.
func (c *Chunker) ChunkText(text string) []Chunk {
	paragraphs := filterEmpty(c.paragraphRegex.Split(text, -1))
	if len(paragraphs) == 0 {
		return []Chunk{}
	}

	var chunks []Chunk
	currentChunk := new(strings.Builder)
	currentSize := 0
	chunkIndex := 0

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if len(paragraph) == 0 {
			continue
		}

		paraSize := len(paragraph)

		if currentSize+paraSize > c.maxChunkSize && currentSize >= c.minChunkSize {
			if currentChunk.Len() > 0 {
				chunks = append(chunks, c.createChunk(currentChunk.String(), chunkIndex))
				chunkIndex++
			}

			currentChunk = new(strings.Builder)
			currentSize = 0

			// Carry overlap from the previous chunk
			if len(chunks) > 0 && c.overlap > 0 {
				overlapText := c.getOverlapText(chunks[len(chunks)-1].Text, c.overlap)
				if len(overlapText) > 0 {
					currentChunk.WriteString(overlapText)
					currentSize += len(overlapText)
				}
			}
		}

		if currentChunk.Len() > 0 {
			currentChunk.WriteString("\n\n")
		}
		currentChunk.WriteString(paragraph)
		currentSize += paraSize
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, c.createChunk(currentChunk.String(), chunkIndex))
	}

	return chunks
}

func (c *Chunker) createChunk(text string, order int) Chunk {
	words := strings.Fields(text)
	return Chunk{
		Text:      text,
		Order:     order,
		CharCount: len(text),
		WordCount: len(words),
		Keywords:  c.extractKeywords(text, 5),
	}
}

// extractKeywords picks the most frequent non-stopword terms.
func (c *Chunker) extractKeywords(text string, limit int) []string {
	words := strings.Fields(strings.ToLower(text))

	stopWords := map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
		"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
		"with": true, "is": true, "are": true, "was": true, "were": true,
	}

	wordFreq := make(map[string]int)
	for _, word := range words {
		word = strings.Trim(word, ".,;:!?()[]{}\"")
		if len(word) > 2 && !stopWords[word] {
			wordFreq[word]++
		}
	}

	keywords := make([]string, 0, limit)
	for word, freq := range wordFreq {
		if freq >= 2 && len(keywords) < limit {
			keywords = append(keywords, word)
		}
	}

	return keywords
}

// getOverlapText extracts overlap text from the end of the previous chunk,
// preferring a sentence boundary over a hard character cut.
func (c *Chunker) getOverlapText(text string, overlapSize int) string {
	if len(text) <= overlapSize {
		return text
	}

	sentences := filterEmpty(c.sentenceRegex.Split(text, -1))
	if len(sentences) <= 1 {
		return text[len(text)-overlapSize:]
	}

	result := strings.Join(sentences[1:], ". ")
	if len(result) > overlapSize {
		result = result[len(result)-overlapSize:]
	}
	return result
}

func filterEmpty(slice []string) []string {
	result := make([]string, 0, len(slice))
	for _, s := range slice {
		if len(strings.TrimSpace(s)) > 0 {
			result = append(result, s)
		}
	}
	return result
}
