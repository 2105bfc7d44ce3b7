package gdtf

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DescriptionFile is the XML entry inside a GDTF archive that describes the
// fixture type.
const DescriptionFile = "description.xml"

type descriptionXML struct {
	XMLName     xml.Name       `xml:"GDTF"`
	FixtureType fixtureTypeXML `xml:"FixtureType"`
}

type fixtureTypeXML struct {
	Name       string         `xml:"Name,attr"`
	Attributes []attributeXML `xml:"AttributeDefinitions>Attributes>Attribute"`
	DMXModes   []dmxModeXML   `xml:"DMXModes>DMXMode"`
}

type attributeXML struct {
	Name            string `xml:"Name,attr"`
	ActivationGroup string `xml:"ActivationGroup,attr"`
}

type dmxModeXML struct {
	Name     string          `xml:"Name,attr"`
	Channels []dmxChannelXML `xml:"DMXChannels>DMXChannel"`
}

type dmxChannelXML struct {
	Offset          string              `xml:"Offset,attr"`
	LogicalChannels []logicalChannelXML `xml:"LogicalChannel"`
}

type logicalChannelXML struct {
	Attribute string `xml:"Attribute,attr"`
}

// ParseFile opens a .gdtf archive on disk and parses its description. The
// profile name falls back to the file stem when the description carries no
// fixture-type name.
func ParseFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read GDTF file: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseBytes(data, stem)
}

// ParseBytes parses an in-memory .gdtf archive. Used for profiles embedded
// inside MVR containers, which arrive as nested zip entries.
func ParseBytes(data []byte, fallbackName string) (*Profile, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open GDTF archive: %w", err)
	}

	var desc []byte
	for _, f := range reader.File {
		if strings.HasSuffix(f.Name, DescriptionFile) {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to open %s: %w", DescriptionFile, err)
			}
			desc, err = io.ReadAll(rc)
			_ = rc.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", DescriptionFile, err)
			}
			break
		}
	}
	if desc == nil {
		return nil, fmt.Errorf("%s not found in GDTF archive", DescriptionFile)
	}

	return parseDescription(desc, fallbackName)
}

func parseDescription(data []byte, fallbackName string) (*Profile, error) {
	var doc descriptionXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse GDTF description: %w", err)
	}

	name := doc.FixtureType.Name
	if name == "" {
		name = fallbackName
	}

	// Attribute name -> activation group, for annotating channels.
	groups := make(map[string]string, len(doc.FixtureType.Attributes))
	for _, attr := range doc.FixtureType.Attributes {
		if attr.Name != "" && attr.ActivationGroup != "" {
			groups[attr.Name] = lastSegment(attr.ActivationGroup)
		}
	}

	profile := &Profile{Name: name, Source: SourceExternal}
	for _, modeXML := range doc.FixtureType.DMXModes {
		mode := Mode{Name: modeXML.Name}
		seenOffsets := make(map[int]bool)
		seenAttrs := make(map[string]bool)

		for _, chXML := range modeXML.Channels {
			offset, resolution, ok := parseOffset(chXML.Offset)
			if !ok {
				continue
			}
			if len(chXML.LogicalChannels) == 0 {
				continue
			}
			attribute := lastSegment(chXML.LogicalChannels[0].Attribute)
			if attribute == "" || attribute == "NoFeature" {
				continue
			}
			// One offset and one attribute name per mode; duplicates in
			// the source are dropped, first declaration wins.
			if seenOffsets[offset] || seenAttrs[attribute] {
				continue
			}
			seenOffsets[offset] = true
			seenAttrs[attribute] = true

			mode.Channels = append(mode.Channels, Channel{
				Attribute:       attribute,
				Offset:          offset,
				Resolution:      resolution,
				ActivationGroup: groups[attribute],
			})
		}

		if len(mode.Channels) > 0 {
			profile.Modes = append(profile.Modes, mode)
		}
	}

	if len(profile.Modes) == 0 {
		return nil, fmt.Errorf("GDTF profile %q declares no usable modes", name)
	}
	return profile, nil
}

// parseOffset converts a GDTF Offset attribute ("1" or "1,2", 1-based) into
// a zero-based offset and a resolution. "None" and malformed values are
// skipped.
func parseOffset(raw string) (offset int, resolution Resolution, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "none") {
		return 0, "", false
	}
	parts := strings.Split(raw, ",")
	coarse, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || coarse < 1 {
		return 0, "", false
	}
	resolution = Resolution8Bit
	if len(parts) > 1 {
		resolution = Resolution16Bit
	}
	return coarse - 1, resolution, true
}

// lastSegment strips dotted or colon-prefixed reference paths down to the
// final name ("ActivationGroups.PanTilt" -> "PanTilt").
func lastSegment(ref string) string {
	if idx := strings.LastIndexAny(ref, ".:"); idx >= 0 {
		return ref[idx+1:]
	}
	return ref
}

// LoadFolder parses every .gdtf file in a directory into an external-source
// registry. Files that fail to parse are logged and skipped.
func LoadFolder(dir string) (*Registry, error) {
	registry := NewRegistry()
	if dir == "" {
		return registry, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return registry, nil
		}
		return nil, fmt.Errorf("failed to read GDTF folder: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".gdtf") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		profile, err := ParseFile(path)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", entry.Name(), err)
			continue
		}
		profile.Source = SourceExternal
		registry.Add(profile)
	}

	return registry, nil
}
