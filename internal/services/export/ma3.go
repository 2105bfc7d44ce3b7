package export

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ma3DataVersion is the grandMA3 show file data version these documents
// target.
const ma3DataVersion = "2.2.5.2"

// guidNamespace seeds the name-based GUIDs so the same project state
// exports byte-identical show files.
var guidNamespace = uuid.MustParse("7d9f1a52-3b64-4c08-9e2d-48a6f0c913b7")

// ma3GUID derives a deterministic GUID in MA3 notation, uppercase hex
// with spaces in place of dashes.
func ma3GUID(name string) string {
	u := uuid.NewSHA1(guidNamespace, []byte(name))
	return strings.ToUpper(strings.ReplaceAll(u.String(), "-", " "))
}

// triggerHex renders a DMX value as the six-digit hex triplet MA3 uses
// for remote trigger levels.
func triggerHex(value int) string {
	h := fmt.Sprintf("%02X", value)
	return h + h + h
}

// ma3AttributeNames maps profile attribute names to MA3 attribute names.
var ma3AttributeNames = map[string]string{
	"Dim":   "Dimmer",
	"R":     "ColorRGB_R",
	"G":     "ColorRGB_G",
	"B":     "ColorRGB_B",
	"W":     "ColorRGB_W",
	"WW":    "ColorRGB_WW",
	"CW":    "ColorRGB_CW",
	"White": "ColorRGB_White",
	"Pan":   "Position_Pan",
	"Tilt":  "Position_Tilt",
	"Zoom":  "Beam_Zoom",
	"Focus": "Beam_Focus",
	"Iris":  "Beam_Iris",
}

func ma3Attribute(attr string) string {
	if mapped, ok := ma3AttributeNames[attr]; ok {
		return mapped
	}
	return attr
}

type gma3RemotesDoc struct {
	XMLName     xml.Name        `xml:"GMA3"`
	DataVersion string          `xml:"DataVersion,attr"`
	Remotes     []dmxRemoteXML  `xml:"DmxRemote"`
}

type dmxRemoteXML struct {
	Name       string `xml:"Name,attr"`
	Guid       string `xml:"Guid,attr"`
	Target     string `xml:"Target,attr,omitempty"`
	TriggerOn  string `xml:"TriggerOn,attr"`
	TriggerOff string `xml:"TriggerOff,attr"`
	InFrom     string `xml:"InFrom,attr"`
	InTo       string `xml:"InTo,attr"`
	OutFrom    string `xml:"OutFrom,attr"`
	OutTo      string `xml:"OutTo,attr"`
	Address    string `xml:"Address,attr"`
	Resolution string `xml:"Resolution,attr"`
}

func exportMA3DMXRemotes(rows []Row, cfg FormatConfig) (string, error) {
	doc := gma3RemotesDoc{DataVersion: ma3DataVersion}
	for _, r := range rows {
		name := fmt.Sprintf("%d_%s_%s", r.FixtureID, r.FixtureName, r.Attribute)
		remote := dmxRemoteXML{
			Name:       name,
			Guid:       ma3GUID("remote/" + name),
			TriggerOn:  triggerHex(cfg.TriggerOn),
			TriggerOff: triggerHex(cfg.TriggerOff),
			InFrom:     triggerHex(cfg.InFrom),
			InTo:       triggerHex(cfg.InTo),
			OutFrom:    fmt.Sprintf("%6.1f", cfg.OutFrom),
			OutTo:      fmt.Sprintf("%6.1f", cfg.OutTo),
			Address:    r.ma3Address(),
			Resolution: cfg.Resolution,
		}
		if r.Sequence > 0 {
			remote.Target = fmt.Sprintf("ShowData.DataPools.Default.Sequences.%d", r.Sequence)
		}
		doc.Remotes = append(doc.Remotes, remote)
	}
	return marshalMA3(doc)
}

type gma3SequencesDoc struct {
	XMLName     xml.Name      `xml:"GMA3"`
	DataVersion string        `xml:"DataVersion,attr"`
	Sequences   []sequenceXML `xml:"Sequence"`
}

type sequenceXML struct {
	Name                 string   `xml:"Name,attr"`
	Guid                 string   `xml:"Guid,attr"`
	AutoStart            string   `xml:"AutoStart,attr"`
	AutoStop             string   `xml:"AutoStop,attr"`
	AutoFix              string   `xml:"AutoFix,attr"`
	AutoStomp            string   `xml:"AutoStomp,attr"`
	SoftLTP              string   `xml:"SoftLTP,attr"`
	XFadeReload          string   `xml:"XFadeReload,attr"`
	SwapProtect          string   `xml:"SwapProtect,attr"`
	KillProtect          string   `xml:"KillProtect,attr"`
	UseExecutorTime      string   `xml:"UseExecutorTime,attr"`
	OffwhenOverridden    string   `xml:"OffwhenOverridden,attr"`
	SequMIB              string   `xml:"SequMIB,attr"`
	AutoPrePos           string   `xml:"AutoPrePos,attr"`
	WrapAround           string   `xml:"WrapAround,attr"`
	MasterGoMode         string   `xml:"MasterGoMode,attr"`
	SpeedfromRate        string   `xml:"SpeedfromRate,attr"`
	Tracking             string   `xml:"Tracking,attr"`
	IncludeLinkLastGo    string   `xml:"IncludeLinkLastGo,attr"`
	RateScale            string   `xml:"RateScale,attr"`
	SpeedScale           string   `xml:"SpeedScale,attr"`
	PreferCueAppearance  string   `xml:"PreferCueAppearance,attr"`
	ExecutorDisplayMode  string   `xml:"ExecutorDisplayMode,attr"`
	Action               string   `xml:"Action,attr"`
	Cues                 []cueXML `xml:"Cue"`
}

type cueXML struct {
	Name            string    `xml:"Name,attr,omitempty"`
	No              string    `xml:"No,attr,omitempty"`
	Release         string    `xml:"Release,attr,omitempty"`
	Assert          string    `xml:"Assert,attr,omitempty"`
	AllowDuplicates *string   `xml:"AllowDuplicates,attr,omitempty"`
	TrigType        *string   `xml:"TrigType,attr,omitempty"`
	Parts           []partXML `xml:"Part"`
}

type partXML struct {
	Guid                  string         `xml:"Guid,attr"`
	AlignRangeX           string         `xml:"AlignRangeX,attr"`
	AlignRangeY           string         `xml:"AlignRangeY,attr"`
	AlignRangeZ           string         `xml:"AlignRangeZ,attr"`
	PreserveGridPositions string         `xml:"PreserveGridPositions,attr"`
	MAgic                 string         `xml:"MAgic,attr"`
	Mode                  string         `xml:"Mode,attr"`
	Action                string         `xml:"Action,attr"`
	Sync                  *string        `xml:"Sync,attr,omitempty"`
	Morph                 *string        `xml:"Morph,attr,omitempty"`
	PresetData            *presetDataXML `xml:"PresetData,omitempty"`
}

type presetDataXML struct {
	Size    string      `xml:"Size,attr"`
	Phasers []phaserXML `xml:"Phaser"`
}

type phaserXML struct {
	IDType      string    `xml:"IDType,attr"`
	ID          string    `xml:"ID,attr"`
	Attribute   string    `xml:"Attribute,attr"`
	GridPos     string    `xml:"GridPos,attr"`
	GridPosMatr string    `xml:"GridPosMatr,attr"`
	Selective   string    `xml:"Selective,attr"`
	Steps       []stepXML `xml:"Step"`
}

type stepXML struct {
	Function string `xml:"Function,attr"`
	Absolute string `xml:"Absolute,attr"`
}

// exportMA3Sequences emits one autostart sequence per exported row, each
// holding a single cue that drives the fixture's attribute to full. Rows
// without a sequence number are skipped.
func exportMA3Sequences(rows []Row) (string, error) {
	empty := ""
	doc := gma3SequencesDoc{DataVersion: ma3DataVersion}

	for _, r := range rows {
		if r.Sequence == 0 {
			continue
		}
		name := fmt.Sprintf("%d_%s", r.FixtureID, r.Attribute)
		attr := ma3Attribute(r.Attribute)

		seq := sequenceXML{
			Name:                name,
			Guid:                ma3GUID("sequence/" + name),
			AutoStart:           "Yes",
			AutoStop:            "Yes",
			AutoFix:             "No",
			AutoStomp:           "No",
			SoftLTP:             "Yes",
			XFadeReload:         "No",
			SwapProtect:         "No",
			KillProtect:         "No",
			UseExecutorTime:     "Yes",
			OffwhenOverridden:   "Yes",
			SequMIB:             "Enabled",
			AutoPrePos:          "No",
			WrapAround:          "Yes",
			MasterGoMode:        "None",
			SpeedfromRate:       "No",
			Tracking:            "Yes",
			IncludeLinkLastGo:   "Yes",
			RateScale:           "One",
			SpeedScale:          "One",
			PreferCueAppearance: "No",
			ExecutorDisplayMode: "Both",
			Action:              "Pool Default",
		}

		seq.Cues = append(seq.Cues, cueXML{
			Name:            "OffCue",
			Release:         "Yes",
			Assert:          "Assert",
			AllowDuplicates: &empty,
			TrigType:        &empty,
			Parts:           []partXML{basePart(ma3GUID("offcue/" + name))},
		})
		seq.Cues = append(seq.Cues, cueXML{
			Name:  "CueZero",
			No:    "  0",
			Parts: []partXML{basePart(ma3GUID("cuezero/" + name))},
		})

		mainPart := basePart(ma3GUID("cueone/" + name))
		mainPart.Sync = &empty
		mainPart.Morph = &empty
		mainPart.PresetData = &presetDataXML{
			Size: "1",
			Phasers: []phaserXML{{
				IDType:      "0",
				ID:          fmt.Sprintf("%d", r.FixtureID),
				Attribute:   attr,
				GridPos:     "0",
				GridPosMatr: "0",
				Selective:   "true",
				Steps:       []stepXML{{Function: attr, Absolute: "100"}},
			}},
		}
		seq.Cues = append(seq.Cues, cueXML{
			No:              "  1",
			AllowDuplicates: &empty,
			Parts:           []partXML{mainPart},
		})

		doc.Sequences = append(doc.Sequences, seq)
	}
	return marshalMA3(doc)
}

func basePart(guid string) partXML {
	return partXML{
		Guid:                  guid,
		AlignRangeX:           "No",
		AlignRangeY:           "No",
		AlignRangeZ:           "No",
		PreserveGridPositions: "No",
		MAgic:                 "No",
		Mode:                  "0",
		Action:                "Pool Default",
	}
}

func marshalMA3(doc interface{}) (string, error) {
	data, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal MA3 XML: %w", err)
	}
	return xml.Header + string(data) + "\n", nil
}
