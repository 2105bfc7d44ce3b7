// Package csvimport reads fixture patch lists from CSV files. Column
// meaning is supplied through a Mapping, which can be guessed from common
// header names and corrected by the caller before import.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/attraddr/attraddr-go/internal/fixture"
)

// ErrEmptyFile indicates the CSV holds no data rows.
var ErrEmptyFile = errors.New("CSV file is empty")

// Mapping assigns CSV header names to fixture fields. Universe and Channel
// take precedence over the flat Address when both are mapped.
type Mapping struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Mode      string `json:"mode"`
	Address   string `json:"address"`
	Universe  string `json:"universe"`
	Channel   string `json:"channel"`
	FixtureID string `json:"fixtureId"`
}

// Result holds the imported fixtures plus per-row diagnostics.
type Result struct {
	Fixtures []*fixture.Fixture
	Headers  []string
	Warnings []string
}

// header patterns used by GuessMapping, checked in order.
var (
	namePatterns     = []string{"name", "fixture", "label", "unit"}
	typePatterns     = []string{"type", "model", "gdtf", "fixture_type", "fixturetype"}
	modePatterns     = []string{"mode", "dmx_mode", "profile"}
	universePatterns = []string{"universe", "uni"}
	channelPatterns  = []string{"channel", "chan"}
	addressPatterns  = []string{"address", "dmx", "start_address", "base_address"}
	idPatterns       = []string{"id", "fixture_id", "number", "unit_number"}
)

// GuessMapping proposes a mapping from header names. Each fixture field
// claims the first unclaimed header matching one of its patterns.
func GuessMapping(headers []string) Mapping {
	var m Mapping
	claimed := make(map[string]bool)

	claim := func(target *string, patterns []string) {
		if *target != "" {
			return
		}
		for _, h := range headers {
			if claimed[h] {
				continue
			}
			lower := strings.ToLower(h)
			for _, p := range patterns {
				if strings.Contains(lower, p) {
					*target = h
					claimed[h] = true
					return
				}
			}
		}
	}

	claim(&m.Name, namePatterns)
	claim(&m.Type, typePatterns)
	claim(&m.Mode, modePatterns)
	claim(&m.Universe, universePatterns)
	claim(&m.Channel, channelPatterns)
	claim(&m.Address, addressPatterns)
	claim(&m.FixtureID, idPatterns)
	return m
}

// ImportFile reads and imports a CSV file from disk.
func ImportFile(path string, mapping Mapping, startFixtureID int) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()
	return Import(f, mapping, startFixtureID)
}

// Import reads fixtures from CSV data. The first record is treated as the
// header row. Rows with unparseable numbers import with defaults and emit
// a warning rather than aborting the whole file.
func Import(r io.Reader, mapping Mapping, startFixtureID int) (*Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[h] = i
	}
	field := func(record []string, header string) string {
		i, ok := index[header]
		if !ok || header == "" || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	res := &Result{Headers: headers}
	nextID := startFixtureID
	rowNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", rowNum+1, err)
		}
		rowNum++

		name := field(record, mapping.Name)
		if name == "" {
			name = fmt.Sprintf("Fixture_%d", nextID)
		}
		fixtureType := field(record, mapping.Type)
		if fixtureType == "" {
			fixtureType = "Unknown"
		}

		universe, channel, addrInvalid, warns := parsePosition(record, mapping, field, name)
		res.Warnings = append(res.Warnings, warns...)

		fixtureID := nextID
		idInvalid := false
		if raw := field(record, mapping.FixtureID); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				idInvalid = true
				res.Warnings = append(res.Warnings, fmt.Sprintf("fixture %q: invalid fixture id %q, using %d", name, raw, nextID))
			} else {
				fixtureID = parsed
			}
		}

		f := fixture.New(name, fixtureType, fixtureID, universe, channel)
		f.Source = fixture.SourceCSV
		f.DeclaredMode = field(record, mapping.Mode)
		f.AddressInvalid = addrInvalid
		f.FixtureIDInvalid = idInvalid
		res.Fixtures = append(res.Fixtures, f)
		nextID++
	}

	if len(res.Fixtures) == 0 {
		return nil, ErrEmptyFile
	}
	return res, nil
}

// parsePosition resolves a row's patch position, preferring explicit
// universe and channel columns over a flat absolute address. The invalid
// return marks positions that could not be parsed and were defaulted.
func parsePosition(record []string, mapping Mapping, field func([]string, string) string, name string) (universe, channel int, invalid bool, warns []string) {
	if mapping.Universe != "" && mapping.Channel != "" {
		universe, errU := strconv.Atoi(field(record, mapping.Universe))
		channel, errC := strconv.Atoi(field(record, mapping.Channel))
		if errU != nil || errC != nil || universe < 1 || channel < 1 || channel > fixture.UniverseSize {
			warns = append(warns, fmt.Sprintf("fixture %q: invalid universe/channel, defaulting to 1/1", name))
			return 1, 1, true, warns
		}
		return universe, channel, false, nil
	}

	raw := field(record, mapping.Address)
	if raw == "" {
		return 1, 1, false, nil
	}
	abs, err := strconv.Atoi(raw)
	if err != nil || abs < 1 {
		warns = append(warns, fmt.Sprintf("fixture %q: invalid address %q, defaulting to 1", name, raw))
		return 1, 1, true, warns
	}
	universe, channel = fixture.SplitAddress(abs)
	return universe, channel, false, nil
}

// Preview returns the header row and up to maxRows data rows, for the
// mapping UI.
func Preview(r io.Reader, maxRows int) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var rows [][]string
	for len(rows) < maxRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV preview: %w", err)
		}
		rows = append(rows, record)
	}
	return headers, rows, nil
}
