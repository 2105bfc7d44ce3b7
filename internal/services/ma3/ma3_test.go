package ma3

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attraddr/attraddr-go/internal/fixture"
)

const patchXML = `<?xml version="1.0" encoding="UTF-8"?>
<GMA3 DataVersion="2.2.5.2">
  <Fixture Name="Spot 1" Guid="AA BB" Mode="MAC Aura XB.DMXModes.Standard" FID="101" Patch="101.206"/>
  <Fixture Name="Spot 2" Mode="Generic RGBW" Patch="25"/>
  <Fixture Mode="" FID="bogus" Patch="nope"/>
</GMA3>`

func TestImport(t *testing.T) {
	res, err := Import([]byte(patchXML))
	require.NoError(t, err)
	require.Len(t, res.Fixtures, 3)

	spot1 := res.Fixtures[0]
	assert.Equal(t, "Spot 1", spot1.Name)
	assert.Equal(t, "MAC Aura XB", spot1.Type)
	assert.Equal(t, "Standard", spot1.DeclaredMode)
	assert.Equal(t, 101, spot1.FixtureID)
	assert.Equal(t, "AA BB", spot1.UUID)
	assert.Equal(t, 101, spot1.Universe)
	assert.Equal(t, 206, spot1.Channel)
	assert.Equal(t, fixture.SourceConsole, spot1.Source)

	spot2 := res.Fixtures[1]
	assert.Equal(t, "Generic RGBW", spot2.Type, "undotted mode is the type itself")
	assert.Equal(t, "", spot2.DeclaredMode)
	assert.Equal(t, 2, spot2.FixtureID, "ordinal fallback without FID")
	assert.Equal(t, 1, spot2.Universe, "bare patch number lands in universe 1")
	assert.Equal(t, 25, spot2.Channel)

	anon := res.Fixtures[2]
	assert.Equal(t, "Fixture_3", anon.Name)
	assert.Equal(t, "Unknown", anon.Type)
	assert.Equal(t, 3, anon.FixtureID)
	assert.True(t, anon.FixtureIDInvalid, "non-numeric FID is flagged")
	assert.Equal(t, 1, anon.BaseAddress())
	assert.True(t, anon.AddressInvalid, "unparseable patch is flagged")
	assert.False(t, spot1.AddressInvalid)
	assert.False(t, spot1.FixtureIDInvalid)

	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "invalid patch")
	assert.Contains(t, res.Warnings[1], "non-numeric FID")
}

func TestImportWrongRoot(t *testing.T) {
	_, err := Import([]byte(`<NotMA3/>`))
	assert.ErrorContains(t, err, "root element must be GMA3")
}

func TestImportMalformed(t *testing.T) {
	_, err := Import([]byte(`<GMA3`))
	assert.Error(t, err)
}

func TestParsePatch(t *testing.T) {
	tests := []struct {
		patch    string
		universe int
		channel  int
		ok       bool
	}{
		{"101.001", 101, 1, true},
		{"101.206", 101, 206, true},
		{"1.512", 1, 512, true},
		{"25", 1, 25, true},
		{"1.600", 1, 1, false},
		{"0.1", 1, 1, false},
		{"a.b", 1, 1, false},
		{"", 1, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.patch, func(t *testing.T) {
			u, c, ok := parsePatch(tt.patch)
			assert.Equal(t, tt.universe, u)
			assert.Equal(t, tt.channel, c)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "patch.xml")
	require.NoError(t, os.WriteFile(good, []byte(patchXML), 0o644))
	assert.True(t, Validate(good))

	wrongRoot := filepath.Join(dir, "other.xml")
	require.NoError(t, os.WriteFile(wrongRoot, []byte(`<Other/>`), 0o644))
	assert.False(t, Validate(wrongRoot))

	wrongExt := filepath.Join(dir, "patch.txt")
	require.NoError(t, os.WriteFile(wrongExt, []byte(patchXML), 0o644))
	assert.False(t, Validate(wrongExt))
}
