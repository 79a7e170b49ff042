package types

import (
	"fmt"
	"strings"
)

// -----------------------------------------------------------------------------
// Data kinds & languages (numbers align with the code object manager)
// -----------------------------------------------------------------------------

// DataKind tags the content of a data object handed to a provider or actor.
type DataKind uint32

const (
	DataKindUndef             DataKind = 0
	DataKindSource            DataKind = 1
	DataKindInclude           DataKind = 2
	DataKindPrecompiledHeader DataKind = 3
	DataKindDiagnostic        DataKind = 4
	DataKindLog               DataKind = 5
	DataKindBC                DataKind = 6
	DataKindRelocatable       DataKind = 7
	DataKindExecutable        DataKind = 8
	DataKindBytes             DataKind = 9
	DataKindFatbin            DataKind = 16
)

var dataKindNames = map[DataKind]string{
	DataKindUndef:             "undef",
	DataKindSource:            "source",
	DataKindInclude:           "include",
	DataKindPrecompiledHeader: "precompiled-header",
	DataKindDiagnostic:        "diagnostic",
	DataKindLog:               "log",
	DataKindBC:                "bc",
	DataKindRelocatable:       "relocatable",
	DataKindExecutable:        "executable",
	DataKindBytes:             "bytes",
	DataKindFatbin:            "fatbin",
}

// String implements the Stringer interface for DataKind.
func (k DataKind) String() string {
	if s, ok := dataKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("data-kind(%d)", uint32(k))
}

// ParseDataKind maps a name produced by DataKind.String back to its value.
func ParseDataKind(s string) (DataKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range dataKindNames {
		if name == s {
			return k, nil
		}
	}
	return DataKindUndef, Errorf(ErrUnsupported, "unknown data kind %q", s)
}

// Language selects the source language of a compile action.
type Language uint32

const (
	LanguageNone     Language = 0
	LanguageOpenCL12 Language = 1
	LanguageOpenCL20 Language = 2
	LanguageHC       Language = 3
	LanguageHIP      Language = 4
)

var languageNames = map[Language]string{
	LanguageNone:     "none",
	LanguageOpenCL12: "opencl-1.2",
	LanguageOpenCL20: "opencl-2.0",
	LanguageHC:       "hc",
	LanguageHIP:      "hip",
}

// String implements the Stringer interface for Language.
func (l Language) String() string {
	if s, ok := languageNames[l]; ok {
		return s
	}
	return fmt.Sprintf("language(%d)", uint32(l))
}

// ParseLanguage maps a name produced by Language.String back to its value.
func ParseLanguage(s string) (Language, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for l, name := range languageNames {
		if name == s {
			return l, nil
		}
	}
	return LanguageNone, Errorf(ErrUnsupported, "unknown language %q", s)
}

// -----------------------------------------------------------------------------
// Open Options
// -----------------------------------------------------------------------------

// MetadataFormat selects how the default opener interprets a buffer.
type MetadataFormat string

const (
	FormatAuto    MetadataFormat = ""        // sniff the buffer
	FormatELF     MetadataFormat = "elf"     // ELF code object with an AMDGPU metadata note
	FormatMsgPack MetadataFormat = "msgpack" // bare MessagePack metadata blob
	FormatYAML    MetadataFormat = "yaml"    // YAML metadata text
)

const (
	// DefaultMaxStringLen is the longest string leaf accepted, in bytes. It
	// matches a 256-byte buffer that includes the terminator.
	DefaultMaxStringLen = 255

	// DefaultMaxEntries bounds the length of any list or map the decoder
	// allocates for.
	DefaultMaxEntries = 1 << 16
)

// OpenOptions controls decoding policy for a code object session.
type OpenOptions struct {
	// Format forces a metadata format. Zero sniffs the buffer.
	Format MetadataFormat

	// MaxStringLen guards string leaves. Zero selects DefaultMaxStringLen.
	MaxStringLen int

	// MaxEntries guards list/map sizes before allocation.
	// Zero selects DefaultMaxEntries.
	MaxEntries int

	// LegacyRegisterSlot reproduces the historical register decode that
	// writes every register entry into index 0. Only for output parity with
	// old tooling; the result is known to be wrong.
	LegacyRegisterSlot bool
}

// WithDefaults returns a copy of o with zero fields replaced by defaults.
func (o OpenOptions) WithDefaults() OpenOptions {
	if o.MaxStringLen <= 0 {
		o.MaxStringLen = DefaultMaxStringLen
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = DefaultMaxEntries
	}
	return o
}
