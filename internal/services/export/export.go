// Package export renders resolved fixture documentation in the supported
// output formats. Exports are deterministic: the same project state always
// produces byte-identical output, including the MA3 GUIDs, which are
// name-derived rather than random.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/attraddr/attraddr-go/internal/fixture"
	"github.com/attraddr/attraddr-go/internal/services/link"
)

// Format identifies an export output format.
type Format string

const (
	FormatText          Format = "text"
	FormatCSV           Format = "csv"
	FormatJSON          Format = "json"
	FormatMA3DMXRemotes Format = "ma3_dmx_remotes"
	FormatMA3Sequences  Format = "ma3_sequences"
)

// Formats lists the supported formats in menu order.
func Formats() []Format {
	return []Format{FormatText, FormatCSV, FormatJSON, FormatMA3DMXRemotes, FormatMA3Sequences}
}

// Valid reports whether f names a supported format.
func (f Format) Valid() bool {
	switch f {
	case FormatText, FormatCSV, FormatJSON, FormatMA3DMXRemotes, FormatMA3Sequences:
		return true
	}
	return false
}

// ExtensionFor returns the conventional file extension for a format.
func ExtensionFor(f Format) string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatJSON:
		return ".json"
	case FormatMA3DMXRemotes, FormatMA3Sequences:
		return ".xml"
	default:
		return ".txt"
	}
}

var (
	// ErrNoRows indicates there is nothing to export, typically because
	// no fixture is matched and resolved yet.
	ErrNoRows = errors.New("no fixture data to export")

	// ErrUnknownFormat indicates an unsupported format name.
	ErrUnknownFormat = errors.New("unknown export format")
)

// Row is one (fixture, attribute) line of export output.
type Row struct {
	FixtureName     string `json:"fixtureName"`
	FixtureID       int    `json:"fixtureId"`
	FixtureType     string `json:"fixtureType"`
	Attribute       string `json:"attribute"`
	Universe        int    `json:"universe"`
	Channel         int    `json:"channel"`
	Absolute        int    `json:"absolute"`
	Sequence        int    `json:"sequence"`
	Role            string `json:"role"`
	ActivationGroup string `json:"activationGroup,omitempty"`
	MasterFixtureID int    `json:"masterFixtureId"`
}

// Address renders the row's patch position as "universe.channel".
func (r Row) Address() string {
	return fmt.Sprintf("%d.%d", r.Universe, r.Channel)
}

// ma3Address renders the patch position zero-padded the way MA3 show files
// expect, "universe.001".
func (r Row) ma3Address() string {
	return fmt.Sprintf("%d.%03d", r.Universe, r.Channel)
}

// BuildRows flattens matched, selected fixtures into export rows. Per
// fixture, attributes come out in channel-offset order restricted to the
// resolved set; secondaries carry their primary's fixture ID as the master
// reference.
func BuildRows(fixtures []*fixture.Fixture) []Row {
	links := link.ResolveLinks(fixtures)

	var rows []Row
	for _, f := range fixtures {
		if !f.Selected || !f.Matched {
			continue
		}
		for _, attr := range sortedAttributes(f) {
			abs, ok := f.Addresses[attr]
			if !ok {
				continue
			}
			rows = append(rows, Row{
				FixtureName:     f.Name,
				FixtureID:       f.FixtureID,
				FixtureType:     f.Type,
				Attribute:       attr,
				Universe:        f.Universes[attr],
				Channel:         f.Channels[attr],
				Absolute:        abs,
				Sequence:        f.Sequences[attr],
				Role:            string(f.Role),
				ActivationGroup: f.ActivationGroups[attr],
				MasterFixtureID: link.MasterFixtureID(f, links),
			})
		}
	}
	return rows
}

// sortedAttributes orders a fixture's attributes by mode channel offset,
// with the name as tiebreak.
func sortedAttributes(f *fixture.Fixture) []string {
	attrs := make([]string, 0, len(f.Attributes))
	for a := range f.Attributes {
		attrs = append(attrs, a)
	}
	sort.Slice(attrs, func(i, j int) bool {
		oi, oj := f.Attributes[attrs[i]], f.Attributes[attrs[j]]
		if oi != oj {
			return oi < oj
		}
		return attrs[i] < attrs[j]
	})
	return attrs
}

// FormatConfig carries the MA3 DMX remote trigger parameters.
type FormatConfig struct {
	TriggerOn  int     `json:"triggerOn" validate:"gte=0,lte=255"`
	TriggerOff int     `json:"triggerOff" validate:"gte=0,lte=255"`
	InFrom     int     `json:"inFrom" validate:"gte=0,lte=255"`
	InTo       int     `json:"inTo" validate:"gte=0,lte=255"`
	OutFrom    float64 `json:"outFrom"`
	OutTo      float64 `json:"outTo"`
	Resolution string  `json:"resolution" validate:"oneof=8bit 16bit"`
}

// DefaultFormatConfig returns the conventional full-range remote setup.
func DefaultFormatConfig() FormatConfig {
	return FormatConfig{
		TriggerOn:  255,
		TriggerOff: 0,
		InFrom:     0,
		InTo:       255,
		OutFrom:    0.0,
		OutTo:      100.0,
		Resolution: "16bit",
	}
}

var validate = validator.New()

// Validate checks trigger value bounds and the resolution name.
func (c FormatConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid export config: %w", err)
	}
	return nil
}

// Export renders rows in the requested format.
func Export(rows []Row, format Format, cfg FormatConfig) (string, error) {
	if len(rows) == 0 {
		return "", ErrNoRows
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	switch format {
	case FormatText:
		return exportText(rows), nil
	case FormatCSV:
		return exportCSV(rows)
	case FormatJSON:
		return exportJSON(rows)
	case FormatMA3DMXRemotes:
		return exportMA3DMXRemotes(rows, cfg)
	case FormatMA3Sequences:
		return exportMA3Sequences(rows)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func exportText(rows []Row) string {
	var b strings.Builder
	b.WriteString("Fixture Address Export\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	current := ""
	for _, r := range rows {
		if r.FixtureName != current {
			if current != "" {
				b.WriteString("\n")
			}
			current = r.FixtureName

			header := fmt.Sprintf("Fixture: %s (ID: %d) (%s)", r.FixtureName, r.FixtureID, titleRole(r.Role))
			if r.Role == string(fixture.RoleSecondary) {
				header += fmt.Sprintf(" -> Master ID: %d", r.MasterFixtureID)
			}
			b.WriteString(header + "\n")
			b.WriteString(strings.Repeat("-", 30) + "\n")
		}
		b.WriteString(fmt.Sprintf("  %-15s Address: %-8s Sequence: %d\n", r.Attribute, r.Address(), r.Sequence))
	}
	return b.String()
}

func titleRole(role string) string {
	if role == "" {
		return "Unassigned"
	}
	lower := strings.ToLower(role)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func exportCSV(rows []Row) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"fixture_name", "fixture_id", "attribute", "address", "absolute_address", "sequence", "role", "master_fixture_id"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range rows {
		master := ""
		if r.Role == string(fixture.RoleSecondary) {
			master = strconv.Itoa(r.MasterFixtureID)
		}
		record := []string{
			r.FixtureName,
			strconv.Itoa(r.FixtureID),
			r.Attribute,
			r.Address(),
			strconv.Itoa(r.Absolute),
			strconv.Itoa(r.Sequence),
			r.Role,
			master,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.String(), nil
}

// jsonFixture groups a fixture's rows for the JSON export shape.
type jsonFixture struct {
	Name       string                   `json:"name"`
	FixtureID  int                      `json:"fixture_id"`
	Type       string                   `json:"type"`
	Role       string                   `json:"role"`
	Attributes map[string]jsonAttribute `json:"attributes"`
}

type jsonAttribute struct {
	Address  string `json:"address"`
	Universe int    `json:"universe"`
	Channel  int    `json:"channel"`
	Absolute int    `json:"absolute_address"`
	Sequence int    `json:"sequence"`
}

func exportJSON(rows []Row) (string, error) {
	var order []string
	grouped := make(map[string]*jsonFixture)
	for _, r := range rows {
		key := fmt.Sprintf("%s_%d", r.FixtureName, r.FixtureID)
		jf, ok := grouped[key]
		if !ok {
			jf = &jsonFixture{
				Name:       r.FixtureName,
				FixtureID:  r.FixtureID,
				Type:       r.FixtureType,
				Role:       r.Role,
				Attributes: make(map[string]jsonAttribute),
			}
			grouped[key] = jf
			order = append(order, key)
		}
		jf.Attributes[r.Attribute] = jsonAttribute{
			Address:  r.Address(),
			Universe: r.Universe,
			Channel:  r.Channel,
			Absolute: r.Absolute,
			Sequence: r.Sequence,
		}
	}

	out := make([]*jsonFixture, 0, len(order))
	for _, key := range order {
		out = append(out, grouped[key])
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON export: %w", err)
	}
	return string(data), nil
}
