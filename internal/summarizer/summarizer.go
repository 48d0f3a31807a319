package summarizer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	passThroughChars = 1000
	chunkChars       = 8000
	compressAbove    = 15000
	compressFallback = 12000

	fallbackSentences = 8
	fallbackChars     = 400

	minUsableResponse = 10
)

const summaryPrompt = `Summarize this transcript into 2-3 detailed sentences that capture the main topics, key points, and any important names or events mentioned. Focus on what would be relevant for creating content metadata.

The source filename provides context about the content: %s

Transcript:
%s

Summary:`

const compressionPrompt = `This is a combined summary from multiple chunks of a long transcript. Compress this into a concise 2-3 paragraph summary that captures the main topics, key points, and important names mentioned.

Source: %s

Combined Summary:
%s

Compressed Summary:`

func (s *implSummarizer) Summarize(ctx context.Context, transcript, sourceName string) (string, error) {
	if len(transcript) <= passThroughChars {
		return transcript, nil
	}

	s.logger.Info(ctx, "Summarizing transcript (%d chars) from %s", len(transcript), sourceName)
	if len(transcript) <= chunkChars {
		return s.summarizeChunk(ctx, transcript, sourceName)
	}

	chunks := splitChars(transcript, chunkChars)
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		s.logger.Info(ctx, "Chunk %d/%d", i+1, len(chunks))
		part, err := s.summarizeChunk(ctx, chunk, fmt.Sprintf("%s_chunk_%d", sourceName, i))
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}

	combined := strings.TrimSpace(strings.Join(parts, "\n\n"))
	if len(combined) <= compressAbove {
		s.logger.Info(ctx, "Transcript chunked and summarized: %d -> %d chars", len(transcript), len(combined))
		return combined, nil
	}

	s.logger.Info(ctx, "Final compression of %d combined chars", len(combined))
	text, err := s.completer.Complete(ctx, fmt.Sprintf(compressionPrompt, sourceName, combined), s.fastModel)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil || len(strings.TrimSpace(text)) <= minUsableResponse {
		s.logger.Warn(ctx, "Final compression failed, truncating: %v", err)
		return truncateRunes(combined, compressFallback) + "... [TRUNCATED]", nil
	}
	return strings.TrimSpace(text), nil
}

func (s *implSummarizer) summarizeChunk(ctx context.Context, transcript, name string) (string, error) {
	text, err := s.completer.Complete(ctx, fmt.Sprintf(summaryPrompt, name, transcript), s.fastModel)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil || len(strings.TrimSpace(text)) <= minUsableResponse {
		s.logger.Warn(ctx, "Summarization of %s failed, using fallback truncation: %v", name, err)
		return FallbackTruncate(transcript, name), nil
	}
	return strings.TrimSpace(text), nil
}

// FallbackTruncate keeps the leading sentences of transcript and notes the original size
func FallbackTruncate(transcript, sourceName string) string {
	sentences := strings.Split(transcript, ".")
	if len(sentences) > fallbackSentences {
		sentences = sentences[:fallbackSentences]
	}

	var (
		kept   []string
		length int
	)
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if length+len(sentence) >= fallbackChars {
			break
		}
		kept = append(kept, sentence)
		length += len(sentence)
	}

	return fmt.Sprintf("%s. [Truncated from %d chars - %s]", strings.Join(kept, ". "), len(transcript), sourceName)
}

func splitChars(s string, size int) []string {
	var out []string
	for len(s) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			cut = size
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
