package bridge

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joshuapare/codeobjkit/pkg/comgr"
	"github.com/joshuapare/codeobjkit/pkg/types"
)

// Placeholders recognised in ExecActor argument templates.
const (
	PlaceInput    = "{input}"    // path of the first input object
	PlaceInputs   = "{inputs}"   // one argument per input object; must stand alone
	PlaceOutput   = "{output}"   // path the tool writes its result to
	PlaceISA      = "{isa}"      // ActionInfo.ISAName
	PlaceOptions  = "{options}"  // ActionInfo.Options split on blanks; must stand alone
	PlaceLanguage = "{language}" // ActionInfo.Language name
)

var kindExt = map[types.DataKind]string{
	types.DataKindSource:            ".src",
	types.DataKindInclude:           ".h",
	types.DataKindPrecompiledHeader: ".pch",
	types.DataKindBC:                ".bc",
	types.DataKindRelocatable:       ".o",
	types.DataKindExecutable:        ".co",
	types.DataKindBytes:             ".bin",
	types.DataKindFatbin:            ".fatbin",
}

// ExecActor performs actions by running external tools. Each action maps to
// an argv template; see the Place* constants. Inputs are written to a
// scratch directory that is removed when the action completes. The result is
// the {output} file, or the tool's stdout when the template has no {output}.
// For actions that add objects (see comgr.Action.Adds) the result follows
// the input objects in the returned set.
type ExecActor struct {
	Tools map[comgr.Action][]string
	Env   []string     // extra environment, appended to os.Environ
	Log   *slog.Logger // nil discards
}

// Do implements comgr.Actor.
func (a *ExecActor) Do(ctx context.Context, action comgr.Action, info comgr.ActionInfo, in comgr.DataSet) (comgr.DataSet, error) {
	tmpl := a.Tools[action]
	if len(tmpl) == 0 {
		return nil, types.Errorf(types.ErrUnsupported, "no tool configured for %s", action)
	}
	if len(in) == 0 {
		return nil, types.Errorf(types.ErrProtocol, "%s: no input objects", action)
	}

	dir, err := os.MkdirTemp(info.WorkingDirectory, "codeobj-")
	if err != nil {
		return nil, fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inputs := make([]string, len(in))
	for i, d := range in {
		inputs[i] = filepath.Join(dir, inputName(i, d))
		if err := os.WriteFile(inputs[i], d.Bytes, 0o600); err != nil {
			return nil, fmt.Errorf("stage input: %w", err)
		}
	}
	output := filepath.Join(dir, "output"+kindExt[action.OutputKind()])

	argv, wantsOutput := expand(tmpl, inputs, output, info)
	if len(argv) == 0 {
		return nil, types.Errorf(types.ErrUnsupported, "tool template for %s expands to nothing", action)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	if len(a.Env) > 0 {
		cmd.Env = append(os.Environ(), a.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if a.Log != nil {
		a.Log.Debug("exec action", "action", action.String(), "argv", argv)
	}
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", argv[0], err, msg)
		}
		return nil, fmt.Errorf("%s: %w", argv[0], err)
	}

	result := stdout.Bytes()
	if wantsOutput {
		if result, err = os.ReadFile(output); err != nil {
			return nil, fmt.Errorf("%s wrote no output: %w", argv[0], err)
		}
	}
	d := comgr.Data{Kind: action.OutputKind(), Name: "output", Bytes: result}
	if action.Adds() {
		return append(slices.Clone(in), d), nil
	}
	return comgr.DataSet{d}, nil
}

func inputName(i int, d comgr.Data) string {
	if base := filepath.Base(d.Name); d.Name != "" && base != "." && base != ".." && base != string(filepath.Separator) {
		return fmt.Sprintf("%d-%s", i, base)
	}
	return fmt.Sprintf("input%d%s", i, kindExt[d.Kind])
}

// expand substitutes placeholders in tmpl. It reports whether the template
// names an output file.
func expand(tmpl, inputs []string, output string, info comgr.ActionInfo) ([]string, bool) {
	r := strings.NewReplacer(
		PlaceInput, inputs[0],
		PlaceOutput, output,
		PlaceISA, info.ISAName,
		PlaceLanguage, info.Language.String(),
	)

	argv := make([]string, 0, len(tmpl)+len(inputs))
	wantsOutput := false
	for _, arg := range tmpl {
		switch arg {
		case PlaceInputs:
			argv = append(argv, inputs...)
			continue
		case PlaceOptions:
			argv = append(argv, strings.Fields(info.Options)...)
			continue
		}
		if strings.Contains(arg, PlaceOutput) {
			wantsOutput = true
		}
		argv = append(argv, r.Replace(arg))
	}
	return argv, wantsOutput
}
