package chunker

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/dshills/semindex-mcp/pkg/types"
)

const (
	// ProseWordCeiling is the paragraph accumulation ceiling per chunk
	ProseWordCeiling = 800
	// ProseWordFloor drops sections below this size unless they are the
	// file's only content
	ProseWordFloor = 50
)

var (
	atxRe    = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	setextRe = regexp.MustCompile(`^(=+|-+)\s*$`)
)

// ProseChunker splits prose and documentation on heading markers into
// sections, then accumulates paragraphs within a section up to a word
// ceiling. The last paragraph of each chunk is carried into the next as
// overlap for narrative continuity.
type ProseChunker struct {
	ceiling int
	floor   int
}

// NewProseChunker creates a prose chunker with default word limits
func NewProseChunker() *ProseChunker {
	return &ProseChunker{
		ceiling: ProseWordCeiling,
		floor:   ProseWordFloor,
	}
}

// Name returns the strategy name
func (p *ProseChunker) Name() string { return "prose" }

// section is a heading-delimited region of the file
type section struct {
	title     string
	startLine int // 1-based line of the heading (or 1 for the preamble)
	// paragraphs with their starting line numbers
	paragraphs []paragraph
}

type paragraph struct {
	startLine int
	endLine   int
	text      string
}

// Chunk splits the file into section chunks
func (p *ProseChunker) Chunk(path, rel string) ([]types.Chunk, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	sections := splitSections(strings.Split(string(content), "\n"))

	var chunks []types.Chunk
	for _, sec := range sections {
		chunks = append(chunks, p.chunkSection(sec, rel)...)
	}

	// Small files below the floor still get their single section chunk
	if len(chunks) == 0 {
		for _, sec := range sections {
			if len(sec.paragraphs) > 0 {
				chunks = append(chunks, p.emit(sec, sec.paragraphs, rel))
				break
			}
		}
	}

	return chunks, nil
}

// chunkSection accumulates a section's paragraphs into word-bounded chunks
func (p *ProseChunker) chunkSection(sec section, rel string) []types.Chunk {
	if len(sec.paragraphs) == 0 {
		return nil
	}

	total := 0
	for _, para := range sec.paragraphs {
		total += wordCount(para.text)
	}
	if total < p.floor {
		return nil
	}

	var chunks []types.Chunk
	var pending []paragraph
	words := 0

	for _, para := range sec.paragraphs {
		w := wordCount(para.text)
		if words+w > p.ceiling && len(pending) > 0 {
			chunks = append(chunks, p.emit(sec, pending, rel))
			// Carry the last paragraph forward as overlap
			overlap := pending[len(pending)-1]
			pending = []paragraph{overlap}
			words = wordCount(overlap.text)
		}
		pending = append(pending, para)
		words += w
	}

	if len(pending) > 0 {
		chunks = append(chunks, p.emit(sec, pending, rel))
	}

	return chunks
}

func (p *ProseChunker) emit(sec section, paras []paragraph, rel string) types.Chunk {
	var parts []string
	if sec.title != "" {
		parts = append(parts, sec.title)
	}
	words := 0
	for _, para := range paras {
		parts = append(parts, para.text)
		words += wordCount(para.text)
	}

	start := paras[0].startLine
	if sec.title != "" && sec.startLine < start {
		start = sec.startLine
	}

	chunkType := types.ChunkSection
	if sec.title == "" {
		chunkType = types.ChunkParagraph
	}

	chunk := types.Chunk{
		FilePath:  rel,
		StartLine: start,
		EndLine:   paras[len(paras)-1].endLine,
		Content:   strings.Join(parts, "\n\n"),
		ChunkType: chunkType,
		Name:      strings.TrimLeft(sec.title, "# "),
		Meta: map[string]string{
			types.MetaSectionTitle: strings.TrimLeft(sec.title, "# "),
			types.MetaWordCount:    strconv.Itoa(words),
		},
	}
	chunk.ComputeContentHash()
	return chunk
}

// splitSections parses lines into heading-delimited sections. Both ATX
// (#, ##) and Setext (underlined) headings are recognized.
func splitSections(lines []string) []section {
	var sections []section
	current := section{startLine: 1}
	var para []string
	paraStart := 0

	flushPara := func(endLine int) {
		if len(para) > 0 {
			current.paragraphs = append(current.paragraphs, paragraph{
				startLine: paraStart,
				endLine:   endLine,
				text:      strings.Join(para, "\n"),
			})
			para = nil
		}
	}
	flushSection := func() {
		if current.title != "" || len(current.paragraphs) > 0 {
			sections = append(sections, current)
		}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		lineNo := i + 1

		if m := atxRe.FindStringSubmatch(line); m != nil {
			flushPara(lineNo - 1)
			flushSection()
			current = section{title: line, startLine: lineNo}
			continue
		}

		// Setext heading: non-empty line underlined with = or -
		if i+1 < len(lines) && strings.TrimSpace(line) != "" &&
			setextRe.MatchString(lines[i+1]) && len(para) == 0 {
			flushSection()
			current = section{title: line, startLine: lineNo}
			i++ // Skip the underline
			continue
		}

		if strings.TrimSpace(line) == "" {
			flushPara(lineNo - 1)
			continue
		}

		if len(para) == 0 {
			paraStart = lineNo
		}
		para = append(para, line)
	}

	flushPara(len(lines))
	flushSection()

	return sections
}
