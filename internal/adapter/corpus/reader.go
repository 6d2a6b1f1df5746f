package corpus

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"sgt/internal/domain"
	"sgt/internal/port"
)

// Format selects how a corpus file is parsed.
type Format string

const (
	// FormatAuto picks FormatCSV for .csv files and FormatLines otherwise.
	FormatAuto Format = "auto"
	// FormatLines reads one sequence per non-blank line. Lines starting
	// with # are comments.
	FormatLines Format = "lines"
	// FormatCSV reads a header row with "id" and "sequence" columns.
	FormatCSV Format = "csv"
)

// ParseFormat converts a config string. Empty selects FormatAuto.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatLines:
		return FormatLines, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", &domain.InvalidParameterError{Name: "format", Value: s, Reason: "must be auto, lines or csv"}
	}
}

// Reader loads sequences from corpus files.
type Reader struct {
	walker    *Walker
	tokenizer *Tokenizer
	format    Format
}

func NewReader(walker *Walker, tokenizer *Tokenizer, format Format) *Reader {
	if format == "" {
		format = FormatAuto
	}
	return &Reader{
		walker:    walker,
		tokenizer: tokenizer,
		format:    format,
	}
}

// Load reads every matching file under root, in lexical path order. Blank
// lines produce no sequence.
func (r *Reader) Load(root string) ([]domain.Sequence, error) {
	files, err := r.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus: %w", err)
	}

	var corpus []domain.Sequence
	for _, file := range files {
		seqs, err := r.LoadFile(file.Path, file.RelPath)
		if err != nil {
			return nil, err
		}
		corpus = append(corpus, seqs...)
	}
	return corpus, nil
}

// LoadFile parses a single file. name prefixes generated sequence IDs.
func (r *Reader) LoadFile(path, name string) ([]domain.Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	format := r.format
	if format == FormatAuto {
		format = FormatLines
		if strings.EqualFold(filepath.Ext(path), ".csv") {
			format = FormatCSV
		}
	}

	var seqs []domain.Sequence
	switch format {
	case FormatCSV:
		seqs, err = r.ReadCSV(f, name)
	default:
		seqs, err = r.ReadLines(f, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return seqs, nil
}

// ReadLines parses one sequence per line. IDs are name:line.
func (r *Reader) ReadLines(in io.Reader, name string) ([]domain.Sequence, error) {
	var seqs []domain.Sequence
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		symbols := r.tokenizer.Tokenize(line)
		if len(symbols) == 0 {
			continue
		}
		seqs = append(seqs, domain.Sequence{
			ID:      name + ":" + strconv.Itoa(lineNo),
			Symbols: symbols,
		})
	}
	return seqs, scanner.Err()
}

// ReadCSV parses a table with a header row. The "sequence" column is
// required and tokenized; "id" is optional and defaults to name:row.
func (r *Reader) ReadCSV(in io.Reader, name string) ([]domain.Sequence, error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	idCol, seqCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "id":
			idCol = i
		case "sequence":
			seqCol = i
		}
	}
	if seqCol < 0 {
		return nil, fmt.Errorf("missing %q column in header %v", "sequence", header)
	}

	var seqs []domain.Sequence
	for row := 2; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if seqCol >= len(record) {
			return nil, fmt.Errorf("row %d has no sequence column", row)
		}
		symbols := r.tokenizer.Tokenize(record[seqCol])
		if len(symbols) == 0 {
			continue
		}

		id := name + ":" + strconv.Itoa(row)
		if idCol >= 0 && idCol < len(record) && strings.TrimSpace(record[idCol]) != "" {
			id = strings.TrimSpace(record[idCol])
		}
		seqs = append(seqs, domain.Sequence{ID: id, Symbols: symbols})
	}
	return seqs, nil
}

var _ port.CorpusSource = (*Reader)(nil)
