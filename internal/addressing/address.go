package addressing

import (
	"fmt"
	"log"
	"strconv"
	"strings"
)

// Protocols carried by the eTerra RTU records.
const (
	ProtocolMK2A   = "MK2A"
	ProtocolIEC101 = "IEC60870-101"
)

// GenericType classifies a telecontrol record.
type GenericType string

const (
	TypeSingleDigital GenericType = "SD"
	TypeDoubleDigital GenericType = "DD"
	TypeAnalog        GenericType = "A"
	TypeControl       GenericType = "CTRL"
	TypeSetpoint      GenericType = "SETPOINT"
	TypeDummy         GenericType = "DUMMY"
	TypeUnknown       GenericType = "Unknown"
)

// Valid reports whether t is a known generic type.
func (t GenericType) Valid() bool {
	switch t {
	case TypeSingleDigital, TypeDoubleDigital, TypeAnalog, TypeControl, TypeSetpoint, TypeDummy, TypeUnknown:
		return true
	}
	return false
}

// IsControl reports whether t is an outbound (control or setpoint) record type.
func (t GenericType) IsControl() bool {
	return t == TypeControl || t == TypeSetpoint
}

// TypeTag is the type marker embedded in a generic point address. Control
// and setpoint records collapse to "C"; everything else keeps its type name.
func (t GenericType) TypeTag() string {
	if t.IsControl() {
		return "C"
	}
	return string(t)
}

// CombineIOA packs a two-part IEC information object address into a single
// integer: ioa1 in the high 16 bits, ioa2 in the low 16.
func CombineIOA(ioa1, ioa2 int) int {
	return ioa1<<16 | ioa2&0xFFFF
}

// SplitIOA is the inverse of CombineIOA.
func SplitIOA(ioa int) (ioa1, ioa2 int) {
	return ioa >> 16, ioa & 0xFFFF
}

// ControlFunctionTag canonicalises a raw eTerra control function id for use
// in a generic address. Setpoints are always "2", select-before-operate
// controls keep "1" and everything else is "0".
func ControlFunctionTag(rawID string, t GenericType) string {
	if t == TypeSetpoint {
		return "2"
	}
	if strings.TrimSpace(rawID) == "1" {
		return "1"
	}
	return "0"
}

// RTUID renders the RTU identity prefix of a generic address.
func RTUID(rtu, rtuAddress string) string {
	return "(" + rtu + ":" + rtuAddress + ")"
}

// Alias builds the four-part point alias shared by eTerra and PowerOn.
func Alias(sub, deviceType, deviceID, pointID string) string {
	return sub + "/" + deviceType + "/" + deviceID + "/" + pointID
}

// PointFields carries the raw address material of one record. Card and Word
// double as IOA1 and IOA2 under IEC60870-101. CtrlFunc is the raw control
// function id and is only consulted for control and setpoint records.
type PointFields struct {
	RTU        string
	RTUAddress string
	Protocol   string
	Card       string
	Word       string
	CASDU      string
	CtrlFunc   string
	Type       GenericType
}

// Derived is the codec output for one record. Under IEC60870-101 a
// non-integer Card or Word leaves Address and the IOA fields empty; the
// caller keeps the row.
type Derived struct {
	CASDU   string
	IOA     string
	IOA1    string
	IOA2    string
	Address string
}

// Derive computes the canonical GenericPointAddress and IOA fields for one
// record. Failures are local: they are logged and yield an empty address.
func Derive(p PointFields, logger *log.Logger) Derived {
	ctrl := ""
	if p.Type.IsControl() {
		ctrl = ControlFunctionTag(p.CtrlFunc, p.Type)
	}
	rtuID := RTUID(p.RTU, p.RTUAddress)

	// Only MK2A carries Card:Word scan addresses; any other protocol is
	// addressed the IEC way.
	if p.Protocol == ProtocolMK2A {
		return Derived{
			CASDU:   p.CASDU,
			Address: fmt.Sprintf("[%s:%s:%s-%s %s]", rtuID, p.Card, p.Word, ctrl, p.Type.TypeTag()),
		}
	}

	ioa1, err1 := strconv.Atoi(strings.TrimSpace(p.Card))
	ioa2, err2 := strconv.Atoi(strings.TrimSpace(p.Word))
	if err1 != nil || err2 != nil {
		if logger != nil {
			logger.Printf("addressing: bad IEC address fields r%s:c%s:w%s (%s), address left empty",
				p.RTU, p.Card, p.Word, p.Type)
		}
		return Derived{CASDU: p.CASDU}
	}
	ioa := CombineIOA(ioa1, ioa2)
	return Derived{
		CASDU:   p.CASDU,
		IOA:     strconv.Itoa(ioa),
		IOA1:    strconv.Itoa(ioa1),
		IOA2:    strconv.Itoa(ioa2),
		Address: fmt.Sprintf("[%s:%s:%d-%s %s]", rtuID, p.CASDU, ioa, ctrl, p.Type.TypeTag()),
	}
}

// Parsed is a generic point address decomposed into its grammar parts.
type Parsed struct {
	RTU        string
	RTUAddress string
	Key1       string
	Key2       string
	CtrlTag    string
	TypeTag    string
}

// String re-renders the address in canonical form.
func (p Parsed) String() string {
	return fmt.Sprintf("[%s:%s:%s-%s %s]", RTUID(p.RTU, p.RTUAddress), p.Key1, p.Key2, p.CtrlTag, p.TypeTag)
}

// Parse decomposes a canonical generic point address.
func Parse(addr string) (Parsed, error) {
	if !strings.HasPrefix(addr, "[(") || !strings.HasSuffix(addr, "]") {
		return Parsed{}, fmt.Errorf("addressing: malformed address %q", addr)
	}
	body := addr[2 : len(addr)-1]
	rtuEnd := strings.Index(body, ")")
	if rtuEnd < 0 {
		return Parsed{}, fmt.Errorf("addressing: malformed RTU id in %q", addr)
	}
	rtu, rtuAddr, ok := strings.Cut(body[:rtuEnd], ":")
	if !ok {
		return Parsed{}, fmt.Errorf("addressing: malformed RTU id in %q", addr)
	}
	rest := strings.TrimPrefix(body[rtuEnd+1:], ":")
	tagAt := strings.LastIndex(rest, " ")
	if tagAt < 0 {
		return Parsed{}, fmt.Errorf("addressing: missing type tag in %q", addr)
	}
	keys := rest[:tagAt]
	dash := strings.LastIndex(keys, "-")
	if dash < 0 {
		return Parsed{}, fmt.Errorf("addressing: missing control tag in %q", addr)
	}
	key1, key2, ok := strings.Cut(keys[:dash], ":")
	if !ok {
		return Parsed{}, fmt.Errorf("addressing: malformed keys in %q", addr)
	}
	return Parsed{
		RTU:        rtu,
		RTUAddress: rtuAddr,
		Key1:       key1,
		Key2:       key2,
		CtrlTag:    keys[dash+1:],
		TypeTag:    rest[tagAt+1:],
	}, nil
}

// GenericTypeFromPOType maps a PowerOn record type onto the generic
// vocabulary.
func GenericTypeFromPOType(poType string) GenericType {
	switch strings.TrimSpace(poType) {
	case "A1", "A2", "A4":
		return TypeAnalog
	case "DI":
		return TypeSingleDigital
	case "DD":
		return TypeDoubleDigital
	case "DO":
		return TypeControl
	case "AO":
		return TypeSetpoint
	}
	return TypeUnknown
}

// ScanOffset computes the 1-based eTerra scan offset for a PowerOn inventory
// row. IEC rows pass the combined IOA through unchanged. Returns ok=false,
// with an empty offset, when word or shift cannot be parsed.
func ScanOffset(protocol, poType, word, shift string) (offset string, ok bool) {
	if protocol == ProtocolIEC101 {
		return strings.TrimSpace(word), true
	}
	w, err := strconv.Atoi(strings.TrimSpace(word))
	if err != nil {
		return "", false
	}
	switch GenericTypeFromPOType(poType) {
	case TypeSingleDigital:
		s, err := strconv.Atoi(strings.TrimSpace(shift))
		if err != nil {
			return "", false
		}
		return strconv.Itoa(w*8 + s + 1), true
	case TypeDoubleDigital:
		s, err := strconv.Atoi(strings.TrimSpace(shift))
		if err != nil {
			return "", false
		}
		return strconv.Itoa((w*8+s)/2 + 1), true
	}
	return strconv.Itoa(w + 1), true
}

// IsDummyPoint reports whether an eTerra point record carries no physical
// scan address on either protocol.
func IsDummyPoint(card, casdu string) bool {
	return strings.TrimSpace(card) == "" && strings.TrimSpace(casdu) == ""
}
