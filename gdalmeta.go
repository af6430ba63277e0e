package blackmarble

import (
	"encoding/xml"
	"slices"
	"strings"
)

// dateAttribute is the GDALMetadata item naming the observation date, as
// written by the NASA Black Marble products this store format derives from.
const dateAttribute = "RangeEndingDate"

// gdalMetadata models the XML document stored in the GDALMetadata TIFF tag.
type gdalMetadata struct {
	XMLName xml.Name           `xml:"GDALMetadata"`
	Items   []gdalMetadataItem `xml:"Item"`
}

type gdalMetadataItem struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// parseGDALMetadata parses the GDALMetadata tag value into a name-to-value
// map. Item values are whitespace-trimmed.
func parseGDALMetadata(s string) (map[string]string, error) {
	s = strings.Trim(s, "\x00") // ASCII fields keep their NUL terminator in some readers
	var doc gdalMetadata
	if err := xml.Unmarshal([]byte(s), &doc); err != nil {
		return nil, err
	}
	items := make(map[string]string, len(doc.Items))
	for _, item := range doc.Items {
		items[item.Name] = strings.TrimSpace(item.Value)
	}
	return items, nil
}

// encodeGDALMetadata encodes items as a GDALMetadata tag value.
func encodeGDALMetadata(items map[string]string) (string, error) {
	doc := gdalMetadata{}
	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	// Deterministic item order keeps written files byte-for-byte reproducible.
	slices.Sort(names)
	for _, name := range names {
		doc.Items = append(doc.Items, gdalMetadataItem{Name: name, Value: items[name]})
	}
	data, err := xml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
