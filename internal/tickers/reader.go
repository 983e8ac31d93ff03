package tickers

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SymbolColumn is the header a CSV ticker file must carry.
const SymbolColumn = "Symbol"

// ErrNoSymbolColumn is returned for CSV files without a Symbol header.
var ErrNoSymbolColumn = errors.New("tickers: csv has no Symbol column")

// ReadFile loads a ticker list. Files ending in .csv are read through their Symbol column;
// anything else is one symbol per line. Symbols are trimmed, upper-cased and deduplicated in
// first-seen order.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ticker file: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadCSV(f)
	}
	return ReadList(f)
}

// ReadList reads one symbol per line. Blank lines and lines starting with # are skipped.
func ReadList(r io.Reader) ([]string, error) {
	var raw []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw = append(raw, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ticker list: %w", err)
	}
	return normalize(raw), nil
}

// ReadCSV reads the Symbol column of a headed CSV. The header match ignores case.
func ReadCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoSymbolColumn
	}
	if err != nil {
		return nil, fmt.Errorf("read ticker csv header: %w", err)
	}
	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")), SymbolColumn) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, ErrNoSymbolColumn
	}

	var raw []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ticker csv: %w", err)
		}
		if col < len(rec) {
			raw = append(raw, rec[col])
		}
	}
	return normalize(raw), nil
}

func normalize(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
