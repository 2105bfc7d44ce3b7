// Package mvr imports fixtures and embedded GDTF profiles from MVR scene
// archives. An MVR file is a zip holding a scene description XML plus the
// .gdtf archives the scene references.
package mvr

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

	"github.com/attraddr/attraddr-go/internal/fixture"
	"github.com/attraddr/attraddr-go/internal/gdtf"
)

// Result holds everything imported from one MVR archive.
type Result struct {
	Fixtures []*fixture.Fixture
	Profiles *gdtf.Registry
	Warnings []string
}

// ImportFile parses an MVR archive on disk.
func ImportFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read MVR file: %w", err)
	}
	return Import(data)
}

// Import parses an in-memory MVR archive.
func Import(data []byte) (*Result, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open MVR archive: %w", err)
	}

	sceneXML, err := sceneDescription(reader)
	if err != nil {
		return nil, err
	}

	fixtures, warnings, err := parseScene(sceneXML)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Fixtures: fixtures,
		Profiles: gdtf.NewRegistry(),
		Warnings: warnings,
	}

	for _, f := range reader.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".gdtf") {
			continue
		}
		profile, err := parseEmbeddedGDTF(f)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("skipping embedded profile %s: %v", f.Name, err))
			continue
		}
		profile.Source = gdtf.SourceEmbedded
		res.Profiles.Add(profile)
	}

	return res, nil
}

// Validate reports whether the file looks like an MVR archive: a zip
// carrying at least one XML entry.
func Validate(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".mvr" && ext != ".zip" {
		return false
	}
	r, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	defer r.Close()
	for _, f := range r.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".xml") {
			return true
		}
	}
	return false
}

// sceneDescription finds and reads the scene XML. GeneralSceneDescription
// is the canonical name; some writers use other scene file names, so any
// XML mentioning "Scene" is accepted, then the first XML entry as a last
// resort.
func sceneDescription(reader *zip.Reader) ([]byte, error) {
	var xmlFiles []*zip.File
	for _, f := range reader.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".xml") {
			xmlFiles = append(xmlFiles, f)
		}
	}
	if len(xmlFiles) == 0 {
		return nil, fmt.Errorf("no XML files found in MVR archive")
	}

	target := xmlFiles[0]
	for _, f := range xmlFiles {
		if strings.Contains(f.Name, "GeneralSceneDescription") || strings.Contains(f.Name, "Scene") {
			target = f
			break
		}
	}

	rc, err := target.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open scene description %s: %w", target.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene description %s: %w", target.Name, err)
	}
	return data, nil
}

// sceneNode is a generic XML node. Fixture elements can nest at any depth
// under layers and group objects, so the scene is walked recursively
// instead of through a fixed schema.
type sceneNode struct {
	XMLName  xml.Name    `xml:""`
	Attrs    []xml.Attr  `xml:",any,attr"`
	Children []sceneNode `xml:",any"`
	Text     string      `xml:",chardata"`
}

func (n *sceneNode) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// value returns the node's trimmed text content, falling back to the
// "value" attribute. MVR writers disagree on which one carries the data.
func (n *sceneNode) value() string {
	if text := strings.TrimSpace(n.Text); text != "" {
		return text
	}
	return n.attr("value")
}

func (n *sceneNode) child(name string) *sceneNode {
	for i := range n.Children {
		if n.Children[i].XMLName.Local == name {
			return &n.Children[i]
		}
	}
	return nil
}

func parseScene(data []byte) ([]*fixture.Fixture, []string, error) {
	var root sceneNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, nil, fmt.Errorf("failed to parse scene description: %w", err)
	}

	var fixtures []*fixture.Fixture
	var warnings []string
	counter := 0
	walkFixtures(&root, func(node *sceneNode) {
		counter++
		f, warns := parseFixtureNode(node, counter)
		warnings = append(warnings, warns...)
		if f != nil {
			fixtures = append(fixtures, f)
		}
	})
	return fixtures, warnings, nil
}

func walkFixtures(node *sceneNode, visit func(*sceneNode)) {
	for i := range node.Children {
		child := &node.Children[i]
		if child.XMLName.Local == "Fixture" {
			visit(child)
			continue
		}
		walkFixtures(child, visit)
	}
}

func parseFixtureNode(node *sceneNode, ordinal int) (*fixture.Fixture, []string) {
	name := node.attr("name")
	if name == "" {
		name = fmt.Sprintf("Fixture_%d", ordinal)
	}

	fixtureType := "Unknown"
	if spec := node.child("GDTFSpec"); spec != nil {
		if v := spec.value(); v != "" {
			fixtureType = strings.TrimSuffix(v, ".gdtf")
		}
	}

	var warns []string
	base := 1
	addrInvalid := false
	if addresses := node.child("Addresses"); addresses != nil {
		if addr := addresses.child("Address"); addr != nil {
			parsed, err := strconv.Atoi(addr.value())
			if err != nil || parsed < 1 {
				addrInvalid = true
				warns = append(warns, fmt.Sprintf("fixture %q has invalid address %q, defaulting to 1", name, addr.value()))
			} else {
				base = parsed
			}
		}
	}

	fixtureID := ordinal
	idInvalid := false
	if idNode := node.child("FixtureID"); idNode != nil {
		if raw := idNode.value(); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				fixtureID = parsed
			} else {
				idInvalid = true
				warns = append(warns, fmt.Sprintf("fixture %q has non-numeric fixture ID %q, using ordinal %d", name, raw, ordinal))
			}
		}
	}

	universe, channel := fixture.SplitAddress(base)
	f := fixture.New(name, fixtureType, fixtureID, universe, channel)
	f.UUID = node.attr("uuid")
	f.Source = fixture.SourceMVR
	f.AddressInvalid = addrInvalid
	f.FixtureIDInvalid = idInvalid
	if mode := node.child("GDTFMode"); mode != nil {
		f.DeclaredMode = mode.value()
	}
	return f, warns
}

func parseEmbeddedGDTF(f *zip.File) (*gdtf.Profile, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open archive entry: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive entry: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(f.Name), filepath.Ext(f.Name))
	profile, err := gdtf.ParseBytes(data, stem)
	if err != nil {
		log.Printf("Warning: embedded GDTF %s: %v", f.Name, err)
		return nil, err
	}
	return profile, nil
}
