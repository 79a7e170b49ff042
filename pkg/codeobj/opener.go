package codeobj

import (
	"github.com/joshuapare/codeobjkit/internal/elfobj"
	"github.com/joshuapare/codeobjkit/internal/msgpackmd"
	"github.com/joshuapare/codeobjkit/internal/yamlmd"
	"github.com/joshuapare/codeobjkit/pkg/comgr"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

// Sniff guesses the metadata format of data from its first bytes.
func Sniff(data []byte) types.MetadataFormat {
	switch {
	case elfobj.IsELF(data):
		return types.FormatELF
	case msgpackmd.IsMap(data):
		return types.FormatMsgPack
	default:
		return types.FormatYAML
	}
}

// NewOpener returns the built-in opener. opts.Format forces a format;
// FormatAuto sniffs each buffer.
func NewOpener(opts types.OpenOptions) comgr.Opener {
	opts = opts.WithDefaults()
	return func(data []byte, _ types.DataKind) (comgr.Artifact, error) {
		format := opts.Format
		if format == types.FormatAuto {
			format = Sniff(data)
		}

		switch format {
		case types.FormatELF:
			a, err := elfobj.Open(data, opts)
			if err != nil {
				return nil, err
			}
			return a, nil
		case types.FormatMsgPack:
			a, err := msgpackmd.Open(data, opts)
			if err != nil {
				return nil, err
			}
			return a, nil
		case types.FormatYAML:
			a, err := yamlmd.Open(data)
			if err != nil {
				return nil, err
			}
			return a, nil
		default:
			return nil, types.Errorf(types.ErrUnsupported, "metadata format %q", format)
		}
	}
}
