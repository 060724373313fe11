// Package contacts loads an exported address book and finds entries that
// share a phone number.
package contacts

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// Contact is one address book entry
type Contact struct {
	Name    string   `json:"name" yaml:"name"`
	Numbers []string `json:"numbers" yaml:"numbers"`
}

// ContactDuplicateGroup holds the contacts sharing one normalized number
type ContactDuplicateGroup struct {
	Number   string    `json:"number" yaml:"number"`
	Contacts []Contact `json:"contacts" yaml:"contacts"`
}

// NormalizeNumber keeps only the digits of a phone number
func NormalizeNumber(number string) string {
	var b strings.Builder
	for _, r := range number {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FindDuplicates groups contacts by normalized number. Only numbers shared by
// two or more entries are returned, ordered by number. A contact listing the
// same number twice counts once.
func FindDuplicates(contacts []Contact) []ContactDuplicateGroup {
	byNumber := make(map[string][]int)

	for i, c := range contacts {
		seen := make(map[string]bool)
		for _, n := range c.Numbers {
			norm := NormalizeNumber(n)
			if norm == "" || seen[norm] {
				continue
			}
			seen[norm] = true
			byNumber[norm] = append(byNumber[norm], i)
		}
	}

	var groups []ContactDuplicateGroup
	for number, idx := range byNumber {
		if len(idx) < 2 {
			continue
		}
		g := ContactDuplicateGroup{Number: number}
		for _, i := range idx {
			g.Contacts = append(g.Contacts, contacts[i])
		}
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Number < groups[j].Number })
	return groups
}

// Load reads a contacts file, picking the parser by extension (.vcf or .csv)
func Load(path string) ([]Contact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open contacts: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".vcf", ".vcard":
		return ParseVCard(f)
	case ".csv":
		return ParseCSV(f)
	default:
		return nil, fmt.Errorf("unsupported contacts format: %s", path)
	}
}

// ParseCSV reads a CSV export with a header row. The name column is "name"
// or "display name"; every column whose header mentions "phone" or "number"
// is read as a number.
func ParseCSV(r io.Reader) ([]Contact, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	nameCol := -1
	var numberCols []int
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case h == "name" || h == "display name" || h == "display_name":
			nameCol = i
		case strings.Contains(h, "phone") || strings.Contains(h, "number"):
			numberCols = append(numberCols, i)
		}
	}
	if len(numberCols) == 0 {
		return nil, fmt.Errorf("csv has no phone column")
	}

	var out []Contact
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}

		var c Contact
		if nameCol >= 0 && nameCol < len(rec) {
			c.Name = strings.TrimSpace(rec[nameCol])
		}
		for _, col := range numberCols {
			if col < len(rec) && strings.TrimSpace(rec[col]) != "" {
				c.Numbers = append(c.Numbers, strings.TrimSpace(rec[col]))
			}
		}
		out = append(out, c)
	}

	return out, nil
}

// ParseVCard reads the FN and TEL properties of each BEGIN:VCARD block.
// Folded lines are not supported.
func ParseVCard(r io.Reader) ([]Contact, error) {
	sc := bufio.NewScanner(r)

	var out []Contact
	var cur *Contact

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		upper := strings.ToUpper(line)
		switch {
		case upper == "BEGIN:VCARD":
			cur = &Contact{}
			continue
		case upper == "END:VCARD":
			if cur != nil {
				out = append(out, *cur)
			}
			cur = nil
			continue
		}
		if cur == nil {
			continue
		}

		prop, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		// Drop parameters such as TEL;TYPE=CELL
		name, _, _ := strings.Cut(strings.ToUpper(prop), ";")
		// Drop group prefixes such as item1.TEL
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}

		switch name {
		case "FN":
			cur.Name = strings.TrimSpace(value)
		case "TEL":
			value = strings.TrimPrefix(strings.TrimSpace(value), "tel:")
			if value != "" {
				cur.Numbers = append(cur.Numbers, value)
			}
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vcard: %w", err)
	}
	return out, nil
}
