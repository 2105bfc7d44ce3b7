// Package ma3 imports fixture patch data from grandMA3 console XML
// exports. These files carry patch positions and mode references but no
// embedded profiles, so matching runs against the external GDTF folder.
package ma3

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/attraddr/attraddr-go/internal/fixture"
)

// Result holds the fixtures imported from one MA3 patch file.
type Result struct {
	Fixtures []*fixture.Fixture
	Warnings []string
}

// XMLName is left untagged so any root element decodes; Import checks
// the recorded name itself to produce a readable error.
type gma3Doc struct {
	XMLName  xml.Name
	Fixtures []fixtureXML `xml:"Fixture"`
}

type fixtureXML struct {
	Name  string `xml:"Name,attr"`
	Guid  string `xml:"Guid,attr"`
	Mode  string `xml:"Mode,attr"`
	FID   string `xml:"FID,attr"`
	Patch string `xml:"Patch,attr"`
}

// ImportFile parses an MA3 patch XML file from disk.
func ImportFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read MA3 file: %w", err)
	}
	return Import(data)
}

// Import parses MA3 patch XML. The root element must be GMA3.
func Import(data []byte) (*Result, error) {
	var doc gma3Doc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse MA3 XML: %w", err)
	}
	if doc.XMLName.Local != "GMA3" {
		return nil, fmt.Errorf("not a valid MA3 XML file: root element must be GMA3, got %q", doc.XMLName.Local)
	}

	res := &Result{}
	for i, fx := range doc.Fixtures {
		ordinal := i + 1

		name := fx.Name
		if name == "" {
			name = fmt.Sprintf("Fixture_%d", ordinal)
		}

		universe, channel, ok := parsePatch(fx.Patch)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("fixture %q has invalid patch %q, defaulting to 1.001", name, fx.Patch))
		}

		fixtureID := ordinal
		idInvalid := false
		if fx.FID != "" {
			if parsed, err := strconv.Atoi(fx.FID); err == nil {
				fixtureID = parsed
			} else {
				idInvalid = true
				res.Warnings = append(res.Warnings, fmt.Sprintf("fixture %q has non-numeric FID %q, using ordinal %d", name, fx.FID, ordinal))
			}
		}

		f := fixture.New(name, typeFromMode(fx.Mode), fixtureID, universe, channel)
		f.UUID = fx.Guid
		f.Source = fixture.SourceConsole
		f.DeclaredMode = modeName(fx.Mode)
		f.AddressInvalid = !ok
		f.FixtureIDInvalid = idInvalid
		res.Fixtures = append(res.Fixtures, f)
	}
	return res, nil
}

// Validate reports whether the file parses as MA3 patch XML.
func Validate(path string) bool {
	if !strings.HasSuffix(strings.ToLower(path), ".xml") {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var doc gma3Doc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return false
	}
	return doc.XMLName.Local == "GMA3"
}

// parsePatch splits an MA3 patch reference "universe.channel", e.g.
// "101.001". A bare number is treated as a channel in universe 1.
func parsePatch(patch string) (universe, channel int, ok bool) {
	if patch == "" {
		return 1, 1, false
	}
	if u, c, found := strings.Cut(patch, "."); found {
		universe, errU := strconv.Atoi(u)
		channel, errC := strconv.Atoi(c)
		if errU != nil || errC != nil || universe < 1 || channel < 1 || channel > fixture.UniverseSize {
			return 1, 1, false
		}
		return universe, channel, true
	}
	channel, err := strconv.Atoi(patch)
	if err != nil || channel < 1 || channel > fixture.UniverseSize {
		return 1, 1, false
	}
	return 1, channel, true
}

// typeFromMode extracts the fixture type from an MA3 mode reference, the
// first dotted component of e.g. "MAC Aura XB.DMXModes.Standard".
func typeFromMode(mode string) string {
	if mode == "" {
		return "Unknown"
	}
	if t, _, found := strings.Cut(mode, "."); found {
		return t
	}
	return mode
}

// modeName extracts the trailing mode name from an MA3 mode reference.
func modeName(mode string) string {
	if i := strings.LastIndex(mode, "."); i >= 0 {
		return mode[i+1:]
	}
	return ""
}
