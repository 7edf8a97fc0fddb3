package jpeg

import "fmt"

type markerKind uint8

const (
	markerUnknown markerKind = iota
	markerSOI
	markerEOI
	markerRST
	markerTEM
	markerAPP0
	markerAPP1
	markerAPPn
	markerCOM
	markerSOF
	markerDHT
	markerDQT
	markerDRI
	markerDNL
	markerSOS

	// residual classes: recognised but not interpreted
	markerJPGExt
	markerHierarchical
	markerSOFUnsupported
	markerArithmetic
	markerReserved
)

func classify(m byte) markerKind {
	switch {
	case m == 0xD8:
		return markerSOI
	case m == 0xD9:
		return markerEOI
	case m >= 0xD0 && m <= 0xD7:
		return markerRST
	case m == 0x01:
		return markerTEM
	case m == 0xE0:
		return markerAPP0
	case m == 0xE1:
		return markerAPP1
	case m >= 0xE2 && m <= 0xEF:
		return markerAPPn
	case m == 0xFE:
		return markerCOM
	case m == 0xC0, m == 0xC1, m == 0xC2:
		return markerSOF
	case m == 0xC4:
		return markerDHT
	case m == 0xDB:
		return markerDQT
	case m == 0xDD:
		return markerDRI
	case m == 0xDC:
		return markerDNL
	case m == 0xDA:
		return markerSOS
	}
	return residual(m)
}

// residual labels markers the decoder knows of but does not build.
func residual(m byte) markerKind {
	switch {
	case m == 0xC8, m >= 0xF0 && m <= 0xFD:
		return markerJPGExt
	case m == 0xDE, m == 0xDF:
		return markerHierarchical
	case m == 0xCC:
		return markerArithmetic
	case m >= 0xC3 && m <= 0xCF:
		return markerSOFUnsupported
	case m >= 0x02 && m <= 0xBF:
		return markerReserved
	default:
		return markerUnknown
	}
}

// standalone markers carry no length field.
func (k markerKind) standalone() bool {
	switch k {
	case markerSOI, markerEOI, markerRST, markerTEM:
		return true
	default:
		return false
	}
}

var sofTitles = map[byte]string{
	0xC0: "Start of Frame 0 (Baseline DCT)",
	0xC1: "Start of Frame 1 (Extended Sequential DCT)",
	0xC2: "Start of Frame 2 (Progressive DCT)",
}

func title(k markerKind, m byte) string {
	switch k {
	case markerSOI:
		return "Start of Image"
	case markerEOI:
		return "End of Image"
	case markerRST:
		return fmt.Sprintf("Restart Marker %d", m-0xD0)
	case markerTEM:
		return "Temporary Marker"
	case markerAPP0, markerAPP1, markerAPPn:
		return fmt.Sprintf("APP%d Application-Specific Data", m-0xE0)
	case markerCOM:
		return "Comment"
	case markerSOF:
		return sofTitles[m]
	case markerDHT:
		return "Huffman Table"
	case markerDQT:
		return "Quantization Table Data"
	case markerDRI:
		return "Define Restart Interval"
	case markerDNL:
		return "Define Number of Lines"
	case markerSOS:
		return "Start of Scan"
	case markerJPGExt:
		if m == 0xC8 {
			return "Reserved JPEG Extension (JPG)"
		}
		return fmt.Sprintf("Reserved JPEG Extension (JPG%d)", m-0xF0)
	case markerHierarchical:
		if m == 0xDE {
			return "Define Hierarchical Progression"
		}
		return "Expand Reference Components"
	case markerSOFUnsupported:
		return fmt.Sprintf("Unsupported Start of Frame %d", m-0xC0)
	case markerArithmetic:
		return "Arithmetic Coding Conditioning Table"
	case markerReserved:
		return fmt.Sprintf("Reserved Marker 0x%02X", m)
	default:
		return fmt.Sprintf("Unknown Marker 0x%02X", m)
	}
}

const (
	colorAPPn  = "#aaaaaa"
	colorJFIF  = "#bfc67f"
	colorExif  = "#26a89d"
	colorDQT   = "#b2748a"
	colorSOF   = "#814a8c"
	colorDHT   = "#9b4444"
	colorScan  = "#6f8fbf"
	colorStray = "#777777"
)
