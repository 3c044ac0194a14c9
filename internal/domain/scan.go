package domain

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const scanAttrPrefix = "scan_"

// scanAttributePath is the child path from a lidar_scan element to the
// element whose XML attributes describe the scan geometry.
var scanAttributePath = []int{1, 2, 0}

// ScanDescriptor holds the attributes of one scanning mode, keyed with the
// "scan_" prefix.
type ScanDescriptor struct {
	ID    int
	Attrs Attrs
}

// xmlNode is a generic element tree; the geometry document is addressed by
// position rather than by element names, which vary between software releases.
type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []xmlNode  `xml:",any"`
}

func (n *xmlNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// LoadScanDescriptor selects one lidar_scan entry from a scan geometry
// document. With a nil scanID the document must hold exactly one scan.
func LoadScanDescriptor(r io.Reader, scanID *int) (ScanDescriptor, error) {
	var root xmlNode
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		if err == io.EOF {
			return ScanDescriptor{}, ErrNoScans
		}
		return ScanDescriptor{}, fmt.Errorf("parse scan geometry: %w", err)
	}

	var scans []*xmlNode
	for i := range root.Nodes {
		if root.Nodes[i].XMLName.Local == "lidar_scan" {
			scans = append(scans, &root.Nodes[i])
		}
	}
	if len(scans) == 0 {
		return ScanDescriptor{}, ErrNoScans
	}

	var scan *xmlNode
	id := 0
	switch {
	case scanID != nil:
		for _, s := range scans {
			v, _ := s.attr("id")
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err == nil && n == *scanID {
				scan, id = s, n
				break
			}
		}
		if scan == nil {
			return ScanDescriptor{}, fmt.Errorf("%w: id %d", ErrScanNotFound, *scanID)
		}
	case len(scans) > 1:
		return ScanDescriptor{}, fmt.Errorf("%w: %d scans listed", ErrMultipleScans, len(scans))
	default:
		scan = scans[0]
		if v, ok := scan.attr("id"); ok {
			id, _ = strconv.Atoi(strings.TrimSpace(v))
		}
	}

	block := scan
	for _, i := range scanAttributePath {
		if i >= len(block.Nodes) {
			return ScanDescriptor{}, fmt.Errorf("%w: scan %d", ErrMalformedScan, id)
		}
		block = &block.Nodes[i]
	}

	attrs := make(Attrs, len(block.Attrs))
	for _, a := range block.Attrs {
		attrs[scanAttrPrefix+a.Name.Local] = a.Value
	}
	return ScanDescriptor{ID: id, Attrs: attrs}, nil
}
